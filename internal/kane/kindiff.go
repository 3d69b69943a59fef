package kane

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
)

var (
	ErrKinDiffCount     = errors.New("kane: need exactly one kinematic differential equation per coordinate")
	ErrKinDiffNonlinear = errors.New("kane: kinematic differential equation is not linear in coordinate derivatives")
	ErrKinDiffSingular  = errors.New("kane: kinematic differential equations cannot be solved for coordinate derivatives")
	ErrNoSpeeds         = errors.New("kane: no generalized speeds")
	ErrNotDynamic       = errors.New("kane: symbol is not time-varying")
	ErrCoordinates      = errors.New("kane: coordinates differ from the kinematic differential equations")
)

func modeling(stage string, err error) *dynamo.DerivationError {
	return dynamo.Wrap(stage, dynamo.ErrModeling, err)
}

// KinDiff is a solved set of kinematic differential equations
// K(q) q̇ = k(q, u), one equation per coordinate.
type KinDiff struct {
	qs, us []*expr.Symbol
	qdots  []*expr.Symbol
	eqs    []expr.Expr
	k      *expr.Matrix
	rhs    []expr.Expr
	solved map[*expr.Symbol]expr.Expr
}

// NewKinDiff checks and solves the equations eqs (each implicitly = 0).
func NewKinDiff(qs, us []*expr.Symbol, eqs []expr.Expr) (*KinDiff, error) {
	const stage = "kinematic differential equations"
	if len(eqs) != len(qs) {
		return nil, modeling(stage, fmt.Errorf("%w: %d equations for %d coordinates", ErrKinDiffCount, len(eqs), len(qs)))
	}
	qdots := make([]*expr.Symbol, len(qs))
	zero := make(map[*expr.Symbol]expr.Expr, len(qs))
	for i, q := range qs {
		qd, err := q.Dot()
		if err != nil {
			return nil, modeling(stage, fmt.Errorf("%w: %v", ErrNotDynamic, err)).WithSymbol(q.Name())
		}
		qdots[i] = qd
		zero[qd] = expr.Zero()
	}

	simp := expr.NewSimplifier()
	k := expr.Jacobian(eqs, qdots)
	for i := 0; i < k.Rows(); i++ {
		for j := 0; j < k.Cols(); j++ {
			for _, qd := range qdots {
				if !simp.IsZero(expr.Diff(k.At(i, j), qd)) {
					return nil, modeling(stage, ErrKinDiffNonlinear).WithEquation(i).WithSymbol(qd.String())
				}
			}
			k.Set(i, j, simp.Simplify(k.At(i, j)))
		}
	}

	rhs := make([]expr.Expr, len(eqs))
	for i, e := range eqs {
		rhs[i] = simp.Simplify(expr.Neg(expr.Subs(e, zero)))
	}

	sol, err := simp.Solve(context.Background(), k, rhs)
	if err != nil {
		var se *expr.SingularError
		if errors.As(err, &se) {
			return nil, modeling(stage, fmt.Errorf("%w: %v", ErrKinDiffSingular, err)).WithSymbol(qdots[se.Column].String())
		}
		return nil, modeling(stage, fmt.Errorf("%w: %v", ErrKinDiffSingular, err))
	}
	solved := make(map[*expr.Symbol]expr.Expr, len(qs))
	for i, qd := range qdots {
		solved[qd] = sol[i]
	}
	return &KinDiff{qs: qs, us: us, qdots: qdots, eqs: eqs, k: k, rhs: rhs, solved: solved}, nil
}

func (kd *KinDiff) Coordinates() []*expr.Symbol { return append([]*expr.Symbol(nil), kd.qs...) }
func (kd *KinDiff) Speeds() []*expr.Symbol      { return append([]*expr.Symbol(nil), kd.us...) }
func (kd *KinDiff) QDots() []*expr.Symbol       { return append([]*expr.Symbol(nil), kd.qdots...) }
func (kd *KinDiff) Equations() []expr.Expr      { return append([]expr.Expr(nil), kd.eqs...) }

// Matrix returns K, the coefficient matrix of q̇.
func (kd *KinDiff) Matrix() *expr.Matrix { return kd.k.Clone() }

// Forcing returns k with K q̇ = k.
func (kd *KinDiff) Forcing() []expr.Expr { return append([]expr.Expr(nil), kd.rhs...) }

// Solved returns the map q̇ → expression in q, u and parameters.
func (kd *KinDiff) Solved() map[*expr.Symbol]expr.Expr {
	out := make(map[*expr.Symbol]expr.Expr, len(kd.solved))
	for k, v := range kd.solved {
		out[k] = v
	}
	return out
}

// Residuals substitutes m into the equations and simplifies. Substituting
// Solved() yields all zeros.
func (kd *KinDiff) Residuals(m map[*expr.Symbol]expr.Expr) []expr.Expr {
	simp := expr.NewSimplifier()
	out := make([]expr.Expr, len(kd.eqs))
	for i, e := range kd.eqs {
		out[i] = simp.Simplify(expr.Subs(e, m))
	}
	return out
}
