package mechanics

import (
	"errors"
	"testing"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
)

type fixture struct {
	reg  *expr.Registry
	g    *Graph
	q    *expr.Symbol
	qd   *expr.Symbol
	l    *expr.Symbol
	m    *expr.Symbol
	a    *Frame
	p    *Point
	asm  *Assembly
	base *Frame
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := expr.NewRegistry("fixture")
	q, _ := reg.Coordinate("q")
	qd, _ := q.Dot()
	l, _ := reg.Parameter("l")
	m, _ := reg.Parameter("m")
	g := NewGraph(reg, "N", "O")
	a, err := g.OrientAxis("A", g.Base(), g.Base().Z(), q)
	if err != nil {
		t.Fatalf("orient: %v", err)
	}
	p, err := g.Locate("P", g.Origin(), a.X().Scale(l))
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	return &fixture{reg: reg, g: g, q: q, qd: qd, l: l, m: m, a: a, p: p, asm: NewAssembly(g), base: g.Base()}
}

func TestAxisOrientation(t *testing.T) {
	fx := newFixture(t)
	ax := fx.a.X().Express(fx.base)
	want := [3]expr.Expr{expr.Cos(fx.q), expr.Sin(fx.q), expr.Zero()}
	for i := range ax {
		if !expr.Equal(ax[i], want[i]) {
			t.Errorf("A.x[%d] in N = %v, want %v", i, ax[i], want[i])
		}
	}

	w := fx.g.AngVel(fx.a).Express(fx.base)
	if !expr.IsZero(w[0]) || !expr.IsZero(w[1]) || !expr.Equal(w[2], fx.qd) {
		t.Errorf("angular velocity = %v", w)
	}
}

func TestPointVelocity(t *testing.T) {
	fx := newFixture(t)
	v := fx.g.Vel(fx.p).Express(fx.a)
	want := [3]expr.Expr{expr.Zero(), expr.Mul(fx.l, fx.qd), expr.Zero()}
	for i := range v {
		if !expr.Equivalent(v[i], want[i]) {
			t.Errorf("v_P[%d] in A = %v, want %v", i, v[i], want[i])
		}
	}

	acc := fx.g.Acc(fx.p).Express(fx.a)
	qdd, _ := fx.qd.Dot()
	wantAcc := [3]expr.Expr{
		expr.Neg(expr.Mul(fx.l, expr.Square(fx.qd))),
		expr.Mul(fx.l, qdd),
		expr.Zero(),
	}
	for i := range acc {
		if !expr.Equivalent(acc[i], wantAcc[i]) {
			t.Errorf("a_P[%d] in A = %v, want %v", i, acc[i], wantAcc[i])
		}
	}
}

func TestPrescribedVelocity(t *testing.T) {
	fx := newFixture(t)
	u, _ := fx.reg.Speed("u")
	if err := fx.g.SetVel(fx.p, fx.base, fx.base.X().Scale(u)); err != nil {
		t.Fatal(err)
	}
	v := fx.g.Vel(fx.p).Express(fx.base)
	if !expr.Equal(v[0], u) || !expr.IsZero(v[1]) {
		t.Errorf("prescribed velocity ignored: %v", v)
	}
	if err := fx.g.SetVel(fx.p, fx.a, fx.a.X()); !errors.Is(err, ErrNotBaseFrame) {
		t.Errorf("expected ErrNotBaseFrame, got %v", err)
	}
}

func TestBodyXYZAngularVelocity(t *testing.T) {
	reg := expr.NewRegistry("xyz")
	qs := expr.MustSymbols(reg.Coordinates("q1", "q2", "q3"))
	g := NewGraph(reg, "N", "O")
	b, err := g.OrientBody("B", g.Base(), "XYZ", qs[0], qs[1], qs[2])
	if err != nil {
		t.Fatal(err)
	}
	d := make([]expr.Expr, 3)
	for i, q := range qs {
		qd, _ := q.Dot()
		d[i] = qd
	}
	c2, s2 := expr.Cos(qs[1]), expr.Sin(qs[1])
	c3, s3 := expr.Cos(qs[2]), expr.Sin(qs[2])
	want := [3]expr.Expr{
		expr.Add(expr.Mul(c2, c3, d[0]), expr.Mul(s3, d[1])),
		expr.Add(expr.Neg(expr.Mul(c2, s3, d[0])), expr.Mul(c3, d[1])),
		expr.Add(expr.Mul(s2, d[0]), d[2]),
	}
	got := g.AngVel(b).Express(b)
	for i := range got {
		if !expr.Equivalent(got[i], want[i]) {
			t.Errorf("ω_B[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func dots(t *testing.T, syms ...*expr.Symbol) []*expr.Symbol {
	t.Helper()
	out := make([]*expr.Symbol, len(syms))
	for i, s := range syms {
		d, err := s.Dot()
		if err != nil {
			t.Fatal(err)
		}
		out[i] = d
	}
	return out
}

func expectComponents(t *testing.T, what string, got, want [3]expr.Expr) {
	t.Helper()
	for i := range got {
		if !expr.Equivalent(got[i], want[i]) {
			t.Errorf("%s[%d] = %v, want %v", what, i, got[i], want[i])
		}
	}
}

func TestSpaceOrientationMatchesReversedBody(t *testing.T) {
	reg := expr.NewRegistry("space")
	qs := expr.MustSymbols(reg.Coordinates("q1", "q2", "q3"))
	g := NewGraph(reg, "N", "O")
	s, err := g.OrientSpace("S", g.Base(), "XYZ", qs[0], qs[1], qs[2])
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.OrientBody("B", g.Base(), "ZYX", qs[2], qs[1], qs[0])
	if err != nil {
		t.Fatal(err)
	}

	ds, db := g.DCM(g.Base(), s), g.DCM(g.Base(), b)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !expr.Equivalent(ds[i][j], db[i][j]) {
				t.Errorf("dcm[%d][%d]: space %v, body %v", i, j, ds[i][j], db[i][j])
			}
		}
	}
	expectComponents(t, "ω_S", g.AngVel(s).Express(g.Base()), g.AngVel(b).Express(g.Base()))

	if _, err := g.OrientSpace("T", g.Base(), "XXY", qs[0], qs[1], qs[2]); !errors.Is(err, ErrBadSequence) {
		t.Errorf("expected ErrBadSequence, got %v", err)
	}
}

func TestDCMOrientation(t *testing.T) {
	reg := expr.NewRegistry("dcm")
	a, _ := reg.Coordinate("a")
	g := NewGraph(reg, "N", "O")
	c, s := expr.Cos(a), expr.Sin(a)
	z, o := expr.Zero(), expr.One()
	f, err := g.OrientDCM("A", g.Base(), [3][3]expr.Expr{
		{c, expr.Neg(s), z},
		{s, c, z},
		{z, z, o},
	})
	if err != nil {
		t.Fatal(err)
	}

	expectComponents(t, "A.x", f.X().Express(g.Base()), [3]expr.Expr{c, s, z})
	ad := dots(t, a)[0]
	expectComponents(t, "ω_A", g.AngVel(f).Express(g.Base()), [3]expr.Expr{z, z, ad})
}

func TestAngularAcceleration(t *testing.T) {
	reg := expr.NewRegistry("angacc")
	qs := expr.MustSymbols(reg.Coordinates("q1", "q2"))
	g := NewGraph(reg, "N", "O")
	a, err := g.OrientAxis("A", g.Base(), g.Base().Z(), qs[0])
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.OrientAxis("B", a, a.X(), qs[1])
	if err != nil {
		t.Fatal(err)
	}
	d := dots(t, qs...)
	dd := dots(t, d...)

	// α_B = q1'' N.z + q2'' A.x + q1' q2' (N.z × A.x)
	want := [3]expr.Expr{dd[1], expr.Mul(d[0], d[1]), dd[0]}
	expectComponents(t, "α_B in A", g.AngAcc(b).Express(a), want)
	expectComponents(t, "α_A in N", g.AngAcc(a).Express(g.Base()), [3]expr.Expr{expr.Zero(), expr.Zero(), dd[0]})
}

func TestConstructionErrors(t *testing.T) {
	fx := newFixture(t)
	other := NewGraph(expr.NewRegistry("other"), "N", "O")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"frame redefined", second(fx.g.OrientAxis("A", fx.base, fx.base.Z(), fx.q)), ErrFrameRedefined},
		{"point redefined", second(fx.g.Locate("P", fx.g.Origin(), fx.base.X())), ErrPointRedefined},
		{"foreign parent", second(fx.g.OrientAxis("B", other.Base(), other.Base().Z(), fx.q)), ErrUndeclared},
		{"foreign vector", second(fx.g.Locate("Q", fx.g.Origin(), other.Base().X())), ErrUndeclared},
		{"non-unit axis", second(fx.g.OrientAxis("C", fx.base, fx.base.Z().Scale(expr.Int(2)), fx.q)), ErrAxisNotUnit},
		{"bad sequence", second(fx.g.OrientBody("D", fx.base, "XXY", fx.q, fx.q, fx.q)), ErrBadSequence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.err)
			}
			if !errors.Is(tt.err, dynamo.ErrConstruction) {
				t.Errorf("expected construction category, got %v", tt.err)
			}
		})
	}
}

func second[T any](_ T, err error) error { return err }

func TestAssembly(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.asm.Particle("pa", fx.p, fx.m); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.asm.Particle("pb", fx.p, fx.m); !errors.Is(err, ErrSharedPoint) {
		t.Errorf("expected ErrSharedPoint, got %v", err)
	}
	if _, err := fx.asm.Particle("pa", fx.g.Origin(), fx.m); !errors.Is(err, ErrDuplicateBody) {
		t.Errorf("expected ErrDuplicateBody, got %v", err)
	}
	if err := fx.asm.Force("gravity", fx.p, fx.base.X().Scale(fx.m)); err != nil {
		t.Fatal(err)
	}
	if err := fx.asm.Force("push", fx.p, fx.a.Y()); err != nil {
		t.Errorf("loads may share a point: %v", err)
	}
	other := NewGraph(expr.NewRegistry("other"), "N", "O")
	if err := fx.asm.Torque("t", other.Base(), other.Base().Z()); !errors.Is(err, ErrUndeclared) {
		t.Errorf("expected ErrUndeclared, got %v", err)
	}
	if got := len(fx.asm.Loads()); got != 2 {
		t.Errorf("loads = %d, want 2", got)
	}
}

func TestValidate(t *testing.T) {
	fx := newFixture(t)
	if err := fx.g.Validate(); err != nil {
		t.Errorf("valid graph rejected: %v", err)
	}
}

func TestVectorAlgebra(t *testing.T) {
	fx := newFixture(t)
	n := fx.base
	if d := n.X().Dot(n.Y()); !expr.IsZero(d) {
		t.Errorf("N.x·N.y = %v", d)
	}
	cross := n.X().Cross(n.Y()).Express(n)
	if !expr.IsOne(cross[2]) || !expr.IsZero(cross[0]) || !expr.IsZero(cross[1]) {
		t.Errorf("N.x×N.y = %v", cross)
	}
	if d := fx.a.X().Dot(n.X()); !expr.Equal(d, expr.Cos(fx.q)) {
		t.Errorf("A.x·N.x = %v", d)
	}
	if !n.X().Sub(n.X()).IsZero() {
		t.Error("v - v should be zero")
	}
}
