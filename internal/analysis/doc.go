// Package analysis evaluates derived equations numerically.
//
//   - [Sweep]: evaluate a compiled routine while one argument varies
//   - [Compare]: check a derived model against a closed-form reference
//   - [GeneratePhaseField]: direction field over two state components
//
// Sweeps and comparisons split their work with [dynamo.ParallelFor]; the
// evaluators they call must be safe for concurrent use.
//
//	points, err := analysis.Sweep(callable, args, 0, -math.Pi, math.Pi, 64)
//	if err != nil {
//	    return err
//	}
//	ys := analysis.Column(points, -1)
package analysis
