package reduce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/kane"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

type slider struct {
	sys  *kane.System
	m, g *expr.Symbol
	us   []*expr.Symbol
}

// newSlider builds a particle moving along N.x under gravity. With extra
// set, a second coordinate and speed are declared but never used.
func newSlider(t *testing.T, extra bool) *slider {
	t.Helper()
	reg := expr.NewRegistry("slider")
	qs := expr.MustSymbols(reg.Coordinates("q1"))
	us := expr.MustSymbols(reg.Speeds("u1"))
	if extra {
		qs = append(qs, expr.MustSymbols(reg.Coordinates("q2"))...)
		us = append(us, expr.MustSymbols(reg.Speeds("u2"))...)
	}
	params := expr.MustSymbols(reg.Parameters("l", "m", "g"))
	l, m, g := params[0], params[1], params[2]

	eqs := make([]expr.Expr, len(qs))
	for i, q := range qs {
		qd, err := q.Dot()
		if err != nil {
			t.Fatal(err)
		}
		eqs[i] = expr.Sub(qd, us[i])
	}
	kd, err := kane.NewKinDiff(qs, us, eqs)
	if err != nil {
		t.Fatal(err)
	}

	gr := mechanics.NewGraph(reg, "N", "O")
	n := gr.Base()
	p, err := gr.Locate("P", gr.Origin(), n.X().Scale(l))
	if err != nil {
		t.Fatal(err)
	}
	if err := gr.SetVel(p, n, n.X().Scale(us[0])); err != nil {
		t.Fatal(err)
	}
	asm := mechanics.NewAssembly(gr)
	if _, err := asm.Particle("ParP", p, m); err != nil {
		t.Fatal(err)
	}
	if err := asm.Force("gravity", p, n.X().Scale(expr.Mul(m, g))); err != nil {
		t.Fatal(err)
	}
	method, err := kane.New(gr, qs, us, kd)
	if err != nil {
		t.Fatal(err)
	}
	sys, err := method.Equations(asm.Bodies(), asm.Loads())
	if err != nil {
		t.Fatal(err)
	}
	return &slider{sys: sys, m: m, g: g, us: us}
}

func TestReducePendulumOracle(t *testing.T) {
	s := newSlider(t, false)
	r, err := Reduce(context.Background(), s.sys, s.sys.KinDiffDict(), Options{Timeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.RHS) != 2 {
		t.Fatalf("rhs has %d entries, want 2", len(r.RHS))
	}
	if !expr.Equal(r.RHS[0], s.us[0]) {
		t.Errorf("q1' = %v, want u1", r.RHS[0])
	}
	if !expr.Equal(r.RHS[1], s.g) {
		t.Errorf("u1' = %v, want g", r.RHS[1])
	}
	if got := s.sys.Explicit(); len(got) != 2 || !expr.Equal(got[1], s.g) {
		t.Errorf("system not updated in place: %v", got)
	}
	if err := r.Verify(context.Background()); err != nil {
		t.Errorf("verify: %v", err)
	}

	lines := r.Lines(expr.Format{Notation: expr.Mechanics})
	want := []string{"q1' = u1", "u1' = g"}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReduceSingular(t *testing.T) {
	s := newSlider(t, true)
	_, err := Reduce(context.Background(), s.sys, s.sys.KinDiffDict(), Options{})
	if err == nil {
		t.Fatal("expected a singular mass matrix")
	}
	if !errors.Is(err, expr.ErrSingular) || !errors.Is(err, dynamo.ErrSolve) {
		t.Errorf("unexpected error chain: %v", err)
	}
	var de *dynamo.DerivationError
	if !errors.As(err, &de) {
		t.Fatalf("expected a DerivationError, got %T", err)
	}
	if de.Symbol != "u2" || de.Equation != 3 {
		t.Errorf("diagnosis points at %q row %d, want u2 row 3", de.Symbol, de.Equation)
	}
	if s.sys.Explicit() != nil {
		t.Error("failed reduction must not record a result")
	}
}

func TestReduceBudget(t *testing.T) {
	s := newSlider(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Reduce(ctx, s.sys, s.sys.KinDiffDict(), Options{})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestVerifyRejectsWrongSolution(t *testing.T) {
	s := newSlider(t, false)
	r, err := Reduce(context.Background(), s.sys, s.sys.KinDiffDict(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	r.RHS[1] = expr.Neg(s.g)
	if err := r.Verify(context.Background()); !errors.Is(err, ErrNotIdentity) {
		t.Errorf("expected ErrNotIdentity, got %v", err)
	}
}

func TestCSEKeepsValues(t *testing.T) {
	s := newSlider(t, false)
	r, err := Reduce(context.Background(), s.sys, s.sys.KinDiffDict(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	reps, out := r.CSE()
	if len(reps) != 0 {
		t.Errorf("no repeated subexpressions expected, got %d", len(reps))
	}
	if len(out) != len(r.RHS) {
		t.Errorf("cse changed length: %d", len(out))
	}
}
