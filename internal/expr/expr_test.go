package expr

import (
	"errors"
	"math"
	"testing"
)

func testSymbols(t *testing.T) (x, y, z *Symbol) {
	t.Helper()
	reg := NewRegistry("test")
	syms, err := reg.Parameters("x", "y", "z")
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	return syms[0], syms[1], syms[2]
}

func TestCanonicalConstructors(t *testing.T) {
	x, y, _ := testSymbols(t)

	tests := []struct {
		name string
		got  Expr
		want Expr
	}{
		{"collect like terms", Add(x, x), Mul(Int(2), x)},
		{"cancel", Add(x, Neg(x)), Zero()},
		{"merge powers", Mul(x, Pow(x, Int(-1))), One()},
		{"power of power", Pow(Pow(x, Int(2)), Int(3)), Pow(x, Int(6))},
		{"commutative sum", Add(x, y), Add(y, x)},
		{"commutative product", Mul(x, y), Mul(y, x)},
		{"rational fold", Add(Rat(1, 2), Rat(1, 3)), Rat(5, 6)},
		{"odd sine", Sin(Neg(x)), Neg(Sin(x))},
		{"even cosine", Cos(Neg(x)), Cos(x)},
		{"sine of zero", Sin(Int(0)), Zero()},
		{"cosine of zero", Cos(Int(0)), One()},
		{"distribute coefficient", Mul(Int(2), Add(x, y)), Add(Mul(Int(2), x), Mul(Int(2), y))},
		{"product power", Pow(Mul(x, y), Int(2)), Mul(Pow(x, Int(2)), Pow(y, Int(2)))},
		{"exp log", Exp(Log(x)), x},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Equal(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
			if tt.got.Hash() != tt.want.Hash() {
				t.Errorf("hash mismatch for equal trees")
			}
		})
	}
}

func TestSumIsDistributedNotNested(t *testing.T) {
	x, y, _ := testSymbols(t)
	s := Add(Add(x, Int(1)), Add(y, Int(2)))
	sum, ok := s.(*Sum)
	if !ok {
		t.Fatalf("expected *Sum, got %T", s)
	}
	for _, term := range sum.Terms() {
		if _, nested := term.(*Sum); nested {
			t.Errorf("nested sum %v", term)
		}
	}
	if len(sum.Terms()) != 3 {
		t.Errorf("expected 3 terms, got %d (%v)", len(sum.Terms()), s)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry("r")
	if _, err := reg.Parameter("m"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Parameter("m"); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("expected ErrDuplicateSymbol, got %v", err)
	}

	other := NewRegistry("other")
	m1, _ := reg.Lookup("m")
	m2, _ := other.Parameter("m")
	if Equal(m1, m2) {
		t.Error("symbols from different registries must differ")
	}

	q, _ := reg.Coordinate("q1")
	d1, err := q.Dot()
	if err != nil {
		t.Fatal(err)
	}
	d2, _ := reg.Dot(q)
	if d1 != d2 {
		t.Error("Dot should be cached")
	}
	if d1.Order() != 1 || d1.Base() != q {
		t.Errorf("derivative order/base wrong: %d %v", d1.Order(), d1.Base())
	}
	if _, err := m1.Dot(); !errors.Is(err, ErrStaticDerivative) {
		t.Errorf("expected ErrStaticDerivative, got %v", err)
	}
	if _, err := other.Dot(q); !errors.Is(err, ErrForeignSymbol) {
		t.Errorf("expected ErrForeignSymbol, got %v", err)
	}
}

func TestDiff(t *testing.T) {
	x, y, _ := testSymbols(t)

	tests := []struct {
		name string
		e    Expr
		want Expr
	}{
		{"square", Mul(x, x), Mul(Int(2), x)},
		{"sine", Sin(x), Cos(x)},
		{"chain", Cos(Mul(Int(2), x)), Mul(Int(-2), Sin(Mul(Int(2), x)))},
		{"other symbol", Mul(y, y), Zero()},
		{"product rule", Mul(x, Sin(x)), Add(Sin(x), Mul(x, Cos(x)))},
		{"reciprocal", Pow(x, Int(-1)), Neg(Pow(x, Int(-2)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.e, x)
			if !Equal(got, tt.want) {
				t.Errorf("d/dx %v = %v, want %v", tt.e, got, tt.want)
			}
		})
	}
}

func TestDiffT(t *testing.T) {
	reg := NewRegistry("t")
	q, _ := reg.Coordinate("q")
	m, _ := reg.Parameter("m")
	qd, _ := q.Dot()

	if got, want := DiffT(Sin(q)), Mul(Cos(q), qd); !Equal(got, want) {
		t.Errorf("DiffT(sin q) = %v, want %v", got, want)
	}
	if got, want := DiffT(Mul(m, q)), Mul(m, qd); !Equal(got, want) {
		t.Errorf("DiffT(m q) = %v, want %v", got, want)
	}
	if got := DiffT(m); !IsZero(got) {
		t.Errorf("parameters are constant, got %v", got)
	}
}

func TestSubsAndEval(t *testing.T) {
	x, y, _ := testSymbols(t)
	e := Add(Mul(Int(2), x), y)

	got := Subs(e, map[*Symbol]Expr{x: Int(3)})
	if want := Add(Int(6), y); !Equal(got, want) {
		t.Errorf("Subs = %v, want %v", got, want)
	}

	v, err := Eval(e, map[*Symbol]float64{x: 3, y: 1})
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("Eval = %v, want 7", v)
	}

	if _, err := Eval(e, map[*Symbol]float64{x: 3}); !errors.Is(err, ErrUnbound) {
		t.Errorf("expected ErrUnbound, got %v", err)
	}
}

func TestFreeIsSorted(t *testing.T) {
	x, y, z := testSymbols(t)
	free := Free(Add(Mul(z, Sin(y)), x))
	if len(free) != 3 || free[0] != x || free[1] != y || free[2] != z {
		t.Errorf("Free = %v", free)
	}
}

func TestEvalTrig(t *testing.T) {
	x, _, _ := testSymbols(t)
	v, err := Eval(Add(Square(Sin(x)), Square(Cos(x))), map[*Symbol]float64{x: 0.7})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-1) > 1e-12 {
		t.Errorf("sin^2+cos^2 = %v", v)
	}
}
