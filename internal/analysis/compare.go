package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/kanedyn/internal/dynamo"
)

var ErrMismatch = errors.New("analysis: derived model disagrees with reference")

// Report summarises a comparison against a reference model.
type Report struct {
	Samples int
	MaxDiff float64
	// MaxNorm is the largest Euclidean norm of derived minus reference.
	MaxNorm float64
	Worst   dynamo.State
}

// RandomStates draws n states with entries uniform in [-scale, scale].
func RandomStates(n, dim int, scale float64, seed uint64) []dynamo.State {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]dynamo.State, n)
	for i := range out {
		x := make(dynamo.State, dim)
		for j := range x {
			x[j] = scale * (2*rng.Float64() - 1)
		}
		out[i] = x
	}
	return out
}

// Compare evaluates derived and ref at every state and reports the
// largest componentwise difference. It fails with ErrMismatch when that
// exceeds tol.
func Compare(derived, ref dynamo.System, states []dynamo.State, tol float64) (*Report, error) {
	if derived.StateDim() != ref.StateDim() {
		return nil, fmt.Errorf("%w: derived %d, reference %d", dynamo.ErrDimensionMismatch, derived.StateDim(), ref.StateDim())
	}
	diffs := make([]float64, len(states))
	norms := make([]float64, len(states))
	errs := make([]error, len(states))
	dynamo.ParallelFor(len(states), 8, func(start, end int) {
		for i := start; i < end; i++ {
			if err := dynamo.Validate(ref, states[i]); err != nil {
				errs[i] = err
				continue
			}
			got, want := derived.Derive(states[i]), ref.Derive(states[i])
			diffs[i], errs[i] = got.MaxAbsDiff(want)
			norms[i] = got.Sub(want).Norm()
		}
	})

	rep := &Report{Samples: len(states)}
	for i, d := range diffs {
		if errs[i] != nil {
			return nil, fmt.Errorf("sample %d: %w", i, errs[i])
		}
		if n := norms[i]; math.IsNaN(n) || n > rep.MaxNorm {
			rep.MaxNorm = n
		}
		// NaN never compares greater
		if math.IsNaN(d) || d > rep.MaxDiff {
			rep.MaxDiff = d
			rep.Worst = states[i].Clone()
		}
	}
	if math.IsNaN(rep.MaxDiff) || rep.MaxDiff > tol {
		return rep, fmt.Errorf("%w: max difference %g at %v", ErrMismatch, rep.MaxDiff, rep.Worst)
	}
	return rep, nil
}
