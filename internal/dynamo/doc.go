// Package dynamo provides the shared primitives of a derivation run.
//
// It defines the error categories every stage wraps its failures in:
//
//   - [ErrConstruction]: malformed mechanism description
//   - [ErrModeling]: inconsistent coordinates, speeds or kinematic equations
//   - [ErrSolve]: singular or over-budget reduction
//   - [ErrEvaluation]: numeric evaluation failures
//
// together with [DerivationError], which carries the stage and the symbol
// or equation concerned. [State] and [System] describe closed-form
// first-order models used as numeric references, and [ParallelFor] chunks
// independent evaluations across goroutines.
//
// # Example
//
//	err := dynamo.Wrap("reduce", dynamo.ErrSolve, expr.ErrSingular).WithSymbol("u2")
//	if errors.Is(err, dynamo.ErrSolve) {
//		// report the singular speed
//	}
//
// # Thread Safety
//
// All types are values or immutable after construction. ParallelFor
// callbacks must only write to their own index range.
package dynamo
