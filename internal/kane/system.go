package kane

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
)

// System holds M·ẋ = f over the stacked state x = [q; u]. Reduction passes
// record the explicit right-hand side with SetExplicit.
type System struct {
	coords, speeds []*expr.Symbol
	qdots, udots   []*expr.Symbol

	fr, frstar  []expr.Expr
	mass        *expr.Matrix
	forcing     []expr.Expr
	massFull    *expr.Matrix
	forcingFull []expr.Expr
	kdd         map[*expr.Symbol]expr.Expr

	explicit []expr.Expr
}

var ErrExplicitSize = errors.New("kane: explicit right-hand side has wrong length")

func (s *System) Coordinates() []*expr.Symbol { return append([]*expr.Symbol(nil), s.coords...) }
func (s *System) Speeds() []*expr.Symbol      { return append([]*expr.Symbol(nil), s.speeds...) }

// States returns x = [q; u].
func (s *System) States() []*expr.Symbol {
	out := append([]*expr.Symbol(nil), s.coords...)
	return append(out, s.speeds...)
}

// Rates returns ẋ = [q̇; u̇].
func (s *System) Rates() []*expr.Symbol {
	out := append([]*expr.Symbol(nil), s.qdots...)
	return append(out, s.udots...)
}

func (s *System) Fr() []expr.Expr     { return append([]expr.Expr(nil), s.fr...) }
func (s *System) FrStar() []expr.Expr { return append([]expr.Expr(nil), s.frstar...) }

// MassMatrix returns the dynamic block M = -∂fr*/∂u̇.
func (s *System) MassMatrix() *expr.Matrix { return s.mass.Clone() }

// Forcing returns f = fr + fr*|u̇=0.
func (s *System) Forcing() []expr.Expr { return append([]expr.Expr(nil), s.forcing...) }

// MassMatrixFull returns diag(K, M).
func (s *System) MassMatrixFull() *expr.Matrix { return s.massFull.Clone() }

// ForcingFull returns [k; f].
func (s *System) ForcingFull() []expr.Expr { return append([]expr.Expr(nil), s.forcingFull...) }

// KinDiffDict returns the solved kinematic differential equations.
func (s *System) KinDiffDict() map[*expr.Symbol]expr.Expr {
	out := make(map[*expr.Symbol]expr.Expr, len(s.kdd))
	for k, v := range s.kdd {
		out[k] = v
	}
	return out
}

// Explicit returns ẋ once a reduction pass has recorded it, or nil.
func (s *System) Explicit() []expr.Expr {
	if s.explicit == nil {
		return nil
	}
	return append([]expr.Expr(nil), s.explicit...)
}

// SetExplicit records the reduced right-hand side.
func (s *System) SetExplicit(rhs []expr.Expr) error {
	if len(rhs) != s.massFull.Rows() {
		return fmt.Errorf("%w: %d entries for %d states", ErrExplicitSize, len(rhs), s.massFull.Rows())
	}
	s.explicit = append([]expr.Expr(nil), rhs...)
	return nil
}

// Ops counts the operations in the full mass matrix and forcing vector.
func (s *System) Ops() int {
	n := 0
	for i := 0; i < s.massFull.Rows(); i++ {
		for _, e := range s.massFull.Row(i) {
			n += expr.CountOps(e)
		}
	}
	for _, e := range s.forcingFull {
		n += expr.CountOps(e)
	}
	return n
}

// NumericRank estimates the rank of the full mass matrix by evaluating it
// at random points and taking singular values. The largest rank observed
// over the samples is returned.
func (s *System) NumericRank(samples int, seed uint64) (int, error) {
	if samples < 1 {
		samples = 1
	}
	n := s.massFull.Rows()
	var entries []expr.Expr
	for i := 0; i < n; i++ {
		entries = append(entries, s.massFull.Row(i)...)
	}
	free := expr.FreeAll(entries...)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	best := 0
	data := make([]float64, n*n)
	env := make(map[*expr.Symbol]float64, len(free))
	for k := 0; k < samples; k++ {
		for _, sym := range free {
			env[sym] = 0.5 + rng.Float64()
		}
		for i, e := range entries {
			v, err := expr.Eval(e, env)
			if err != nil {
				return 0, dynamo.Wrap("rank probe", dynamo.ErrEvaluation, err).WithEquation(i / n)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, dynamo.Wrap("rank probe", dynamo.ErrEvaluation, dynamo.ErrInvalidState).WithEquation(i / n)
			}
			data[i] = v
		}
		var svd mat.SVD
		if !svd.Factorize(mat.NewDense(n, n, data), mat.SVDNone) {
			return 0, dynamo.Wrap("rank probe", dynamo.ErrEvaluation, errors.New("kane: SVD did not converge"))
		}
		vals := svd.Values(nil)
		tol := float64(n) * 1e-10 * vals[0]
		rank := 0
		for _, v := range vals {
			if v > tol {
				rank++
			}
		}
		best = max(best, rank)
	}
	return best, nil
}
