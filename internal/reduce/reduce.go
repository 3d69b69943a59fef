// Package reduce turns the implicit equations M·ẋ = f into the explicit
// state derivative ẋ = F(q, u, p).
package reduce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/kane"
)

var (
	ErrResidualDerivative = errors.New("reduce: derivative symbol remains in reduced equations")
	ErrBudgetExceeded     = errors.New("reduce: compute budget exceeded")
	ErrNotIdentity        = errors.New("reduce: reduced equations do not satisfy M·ẋ = f")
)

// Options bound a reduction run.
type Options struct {
	// Timeout, when positive, caps the whole reduction.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Reduced is the explicit first-order form of a system.
type Reduced struct {
	States  []*expr.Symbol
	Rates   []*expr.Symbol
	RHS     []expr.Expr
	Elapsed time.Duration

	sys *kane.System
	kdd map[*expr.Symbol]expr.Expr
}

func budget(stage string, err error) error {
	return dynamo.Wrap(stage, dynamo.ErrSolve, fmt.Errorf("%w: %w", ErrBudgetExceeded, err))
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Reduce inverts the full mass matrix, forms M⁻¹f, substitutes kdd and
// simplifies each entry. The explicit form is also recorded on sys.
func Reduce(ctx context.Context, sys *kane.System, kdd map[*expr.Symbol]expr.Expr, opts Options) (*Reduced, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	states := sys.States()
	simp := expr.NewSimplifier()

	inv, err := simp.Inverse(ctx, sys.MassMatrixFull())
	if err != nil {
		var se *expr.SingularError
		switch {
		case errors.As(err, &se):
			return nil, dynamo.Wrap("invert mass matrix", dynamo.ErrSolve, err).
				WithSymbol(states[se.Column].Name()).
				WithEquation(se.Column)
		case isCtxErr(err):
			return nil, budget("invert mass matrix", err)
		}
		return nil, dynamo.Wrap("invert mass matrix", dynamo.ErrSolve, err)
	}
	log.Debug("mass matrix inverted", "states", len(states), "elapsed", time.Since(start))

	rhs, err := inv.MulVec(sys.ForcingFull())
	if err != nil {
		return nil, dynamo.Wrap("form M⁻¹f", dynamo.ErrSolve, err)
	}
	for i, e := range rhs {
		if err := ctx.Err(); err != nil {
			return nil, budget("simplify", err)
		}
		s, err := simp.SimplifyContext(ctx, expr.Subs(e, kdd))
		if err != nil {
			if isCtxErr(err) {
				return nil, budget("simplify", err)
			}
			return nil, dynamo.Wrap("simplify", dynamo.ErrSolve, err).WithEquation(i)
		}
		if d, ok := expr.HasDerivative(s); ok {
			return nil, dynamo.Wrap("substitute", dynamo.ErrSolve, ErrResidualDerivative).
				WithSymbol(d.String()).
				WithEquation(i)
		}
		rhs[i] = s
	}
	if err := sys.SetExplicit(rhs); err != nil {
		return nil, dynamo.Wrap("reduce", dynamo.ErrSolve, err)
	}

	r := &Reduced{
		States:  states,
		Rates:   sys.Rates(),
		RHS:     rhs,
		Elapsed: time.Since(start),
		sys:     sys,
		kdd:     kdd,
	}
	log.Info("reduced", "states", len(states), "ops", r.Ops(), "elapsed", r.Elapsed)
	return r, nil
}

// Ops is the total operation count of the right-hand side.
func (r *Reduced) Ops() int {
	n := 0
	for _, e := range r.RHS {
		n += expr.CountOps(e)
	}
	return n
}

// Verify substitutes ẋ back into M·ẋ − f and checks every row vanishes.
func (r *Reduced) Verify(ctx context.Context) error {
	mf := r.sys.MassMatrixFull()
	ff := r.sys.ForcingFull()
	lhs, err := mf.MulVec(r.RHS)
	if err != nil {
		return dynamo.Wrap("verify", dynamo.ErrSolve, err)
	}
	simp := expr.NewSimplifier()
	for i := range lhs {
		if err := ctx.Err(); err != nil {
			return budget("verify", err)
		}
		if !simp.IsZero(expr.Subs(expr.Sub(lhs[i], ff[i]), r.kdd)) {
			return dynamo.Wrap("verify", dynamo.ErrSolve, ErrNotIdentity).
				WithSymbol(r.States[i].Name()).
				WithEquation(i)
		}
	}
	return nil
}

// CSE collapses common subexpressions across the right-hand side.
func (r *Reduced) CSE() ([]expr.Replacement, []expr.Expr) {
	return expr.CSE(r.RHS)
}

// Lines renders each equation as "rate = expression".
func (r *Reduced) Lines(f expr.Format) []string {
	out := make([]string, len(r.RHS))
	for i, e := range r.RHS {
		out[i] = f.Equation(r.Rates[i], e)
	}
	return out
}
