package analysis

import (
	"errors"
	"fmt"

	"github.com/san-kum/kanedyn/internal/dynamo"
)

var ErrSweepRange = errors.New("analysis: invalid sweep range")

// Evaluator is a compiled vector function of positional arguments.
type Evaluator interface {
	Len() int
	CallInto(dst, vals []float64) error
}

// SweepPoint holds the evaluated vector at one value of the swept argument.
type SweepPoint struct {
	Param  float64
	Values []float64
}

// Sweep evaluates ev while argument index runs over [min, max] in steps
// evenly spaced values; the other arguments keep their base values.
// Chunks of the sweep run in parallel.
func Sweep(ev Evaluator, base []float64, index int, min, max float64, steps int) ([]SweepPoint, error) {
	if index < 0 || index >= len(base) {
		return nil, fmt.Errorf("%w: argument %d of %d", ErrSweepRange, index, len(base))
	}
	if steps < 2 || !(max > min) {
		return nil, fmt.Errorf("%w: [%g, %g] in %d steps", ErrSweepRange, min, max, steps)
	}
	paramStep := (max - min) / float64(steps-1)

	results := make([]SweepPoint, steps)
	errs := make([]error, steps)
	dynamo.ParallelFor(steps, 16, func(start, end int) {
		vals := make([]float64, len(base))
		copy(vals, base)
		for i := start; i < end; i++ {
			param := min + float64(i)*paramStep
			vals[index] = param
			out := make([]float64, ev.Len())
			errs[i] = ev.CallInto(out, vals)
			results[i] = SweepPoint{Param: param, Values: out}
		}
	})

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sweep point %d: %w", i, err)
		}
	}
	return results, nil
}

// Column extracts entry j of every point; a negative j selects the last
// entry.
func Column(points []SweepPoint, j int) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		k := j
		if k < 0 {
			k = len(p.Values) + j
		}
		out[i] = p.Values[k]
	}
	return out
}

// Params returns the swept argument values.
func Params(points []SweepPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Param
	}
	return out
}

// Rows flattens points into [param, values...] rows.
func Rows(points []SweepPoint) [][]float64 {
	rows := make([][]float64, len(points))
	for i, p := range points {
		rows[i] = append([]float64{p.Param}, p.Values...)
	}
	return rows
}
