package expr

import (
	"hash/fnv"
	"math"
	"math/big"
	"strings"
)

// Expr is an immutable symbolic expression node.
//
// Concrete variants are *Const, *Symbol, *Sum, *Product, *Power and *Call.
// Nodes are only built through the package constructors, which keep every
// tree in canonical form.
type Expr interface {
	// Hash returns the structural hash of the node.
	Hash() uint64
	String() string
	isExpr()
}

// Const is a numeric constant. Exact constants hold a rational value;
// inexact constants come from floating point input and stay tagged so the
// printer and evaluator keep treating them as floats.
type Const struct {
	val     *big.Rat
	inexact bool
	h       uint64
}

// Sum is a canonical, flattened sum of at least two terms.
type Sum struct {
	terms []Expr
	h     uint64
}

// Product is a canonical, flattened product. A numeric coefficient, when
// present, is always the first factor.
type Product struct {
	factors []Expr
	h       uint64
}

// Power is base raised to exp.
type Power struct {
	base, exp Expr
	h         uint64
}

// Func identifies an elementary function.
type Func uint8

const (
	FuncSin Func = iota
	FuncCos
	FuncTan
	FuncExp
	FuncLog
)

var funcNames = [...]string{"sin", "cos", "tan", "exp", "log"}

func (f Func) String() string {
	if int(f) < len(funcNames) {
		return funcNames[f]
	}
	return "unknown"
}

// Call is an elementary function applied to one argument.
type Call struct {
	fn  Func
	arg Expr
	h   uint64
}

func (*Const) isExpr()   {}
func (*Symbol) isExpr()  {}
func (*Sum) isExpr()     {}
func (*Product) isExpr() {}
func (*Power) isExpr()   {}
func (*Call) isExpr()    {}

func (c *Const) Hash() uint64   { return c.h }
func (s *Symbol) Hash() uint64  { return s.h }
func (s *Sum) Hash() uint64     { return s.h }
func (p *Product) Hash() uint64 { return p.h }
func (p *Power) Hash() uint64   { return p.h }
func (c *Call) Hash() uint64    { return c.h }

func (c *Const) String() string   { return Format{Notation: Plain}.Expr(c) }
func (s *Sum) String() string     { return Format{Notation: Plain}.Expr(s) }
func (p *Product) String() string { return Format{Notation: Plain}.Expr(p) }
func (p *Power) String() string   { return Format{Notation: Plain}.Expr(p) }
func (c *Call) String() string    { return Format{Notation: Plain}.Expr(c) }

// Rat returns a copy of the exact value of the constant.
func (c *Const) Rat() *big.Rat { return new(big.Rat).Set(c.val) }

// Float returns the constant as a float64.
func (c *Const) Float() float64 {
	f, _ := c.val.Float64()
	return f
}

// Inexact reports whether the constant originated from a float.
func (c *Const) Inexact() bool { return c.inexact }

// IsInt reports whether the constant is an integer.
func (c *Const) IsInt() bool { return c.val.IsInt() }

// Sign returns -1, 0 or +1.
func (c *Const) Sign() int { return c.val.Sign() }

// Terms returns the summands.
func (s *Sum) Terms() []Expr { return append([]Expr(nil), s.terms...) }

// Factors returns the factors, coefficient first when present.
func (p *Product) Factors() []Expr { return append([]Expr(nil), p.factors...) }

// Base returns the base of the power.
func (p *Power) Base() Expr { return p.base }

// Exp returns the exponent of the power.
func (p *Power) Exp() Expr { return p.exp }

// Func returns the applied function.
func (c *Call) Func() Func { return c.fn }

// Arg returns the function argument.
func (c *Call) Arg() Expr { return c.arg }

const (
	tagConst uint64 = iota + 1
	tagSymbol
	tagSum
	tagProduct
	tagPower
	tagCall
)

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func mix(h, v uint64) uint64 {
	h ^= v
	h *= 1099511628211
	h ^= h >> 29
	return h
}

func hashChildren(tag uint64, xs []Expr) uint64 {
	h := mix(14695981039346656037, tag)
	for _, x := range xs {
		h = mix(h, x.Hash())
	}
	return h
}

func newConst(r *big.Rat, inexact bool) *Const {
	c := &Const{val: r, inexact: inexact}
	c.h = mix(mix(14695981039346656037, tagConst), hashString(r.RatString()))
	return c
}

func newSum(terms []Expr) *Sum {
	return &Sum{terms: terms, h: hashChildren(tagSum, terms)}
}

func newProduct(factors []Expr) *Product {
	return &Product{factors: factors, h: hashChildren(tagProduct, factors)}
}

func newPower(base, exp Expr) *Power {
	return &Power{base: base, exp: exp, h: hashChildren(tagPower, []Expr{base, exp})}
}

func newCall(fn Func, arg Expr) *Call {
	return &Call{fn: fn, arg: arg, h: mix(hashChildren(tagCall, []Expr{arg}), uint64(fn)+1)}
}

// Equal reports structural equality.
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Hash() != b.Hash() {
		return false
	}
	switch x := a.(type) {
	case *Const:
		y, ok := b.(*Const)
		return ok && x.val.Cmp(y.val) == 0
	case *Symbol:
		return false
	case *Sum:
		y, ok := b.(*Sum)
		return ok && equalSlices(x.terms, y.terms)
	case *Product:
		y, ok := b.(*Product)
		return ok && equalSlices(x.factors, y.factors)
	case *Power:
		y, ok := b.(*Power)
		return ok && Equal(x.base, y.base) && Equal(x.exp, y.exp)
	case *Call:
		y, ok := b.(*Call)
		return ok && x.fn == y.fn && Equal(x.arg, y.arg)
	}
	return false
}

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func rank(e Expr) int {
	switch e.(type) {
	case *Const:
		return 0
	case *Symbol:
		return 1
	case *Call:
		return 2
	case *Power:
		return 3
	case *Product:
		return 4
	default:
		return 5
	}
}

// Compare defines the deterministic total order used for canonical forms.
func Compare(a, b Expr) int {
	if a == b {
		return 0
	}
	// powers sort next to their base
	if pa, ok := a.(*Power); ok {
		if _, ok := b.(*Power); !ok {
			if c := Compare(pa.base, b); c != 0 {
				return c
			}
			return 1
		}
	}
	if pb, ok := b.(*Power); ok {
		if _, ok := a.(*Power); !ok {
			if c := Compare(a, pb.base); c != 0 {
				return c
			}
			return -1
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case *Const:
		return x.val.Cmp(b.(*Const).val)
	case *Symbol:
		return compareSymbols(x, b.(*Symbol))
	case *Call:
		y := b.(*Call)
		if x.fn != y.fn {
			if x.fn < y.fn {
				return -1
			}
			return 1
		}
		return Compare(x.arg, y.arg)
	case *Power:
		y := b.(*Power)
		if c := Compare(x.base, y.base); c != 0 {
			return c
		}
		return Compare(x.exp, y.exp)
	case *Product:
		return compareSlices(x.factors, b.(*Product).factors)
	case *Sum:
		return compareSlices(x.terms, b.(*Sum).terms)
	}
	return 0
}

func compareSlices(a, b []Expr) int {
	// compare from the most significant end, like a polynomial leading term
	i, j := len(a)-1, len(b)-1
	for i >= 0 && j >= 0 {
		if c := Compare(a[i], b[j]); c != 0 {
			return c
		}
		i--
		j--
	}
	switch {
	case i < 0 && j < 0:
		return 0
	case i < 0:
		return -1
	default:
		return 1
	}
}

func compareSymbols(a, b *Symbol) int {
	if c := strings.Compare(a.base().name, b.base().name); c != 0 {
		return c
	}
	if a.order != b.order {
		if a.order < b.order {
			return -1
		}
		return 1
	}
	switch {
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return 1
	}
	return 0
}

// IsZero reports whether e is the constant zero. It does not simplify; use
// Simplifier.IsZero for an identity test.
func IsZero(e Expr) bool {
	c, ok := e.(*Const)
	return ok && c.val.Sign() == 0
}

// IsOne reports whether e is the constant one.
func IsOne(e Expr) bool {
	c, ok := e.(*Const)
	return ok && c.val.Cmp(ratOne) == 0
}

// AsConst returns the constant value of e if it is numeric.
func AsConst(e Expr) (*Const, bool) {
	c, ok := e.(*Const)
	return c, ok
}

// Value returns the float value of a constant expression.
func Value(e Expr) (float64, bool) {
	c, ok := e.(*Const)
	if !ok {
		return math.NaN(), false
	}
	return c.Float(), true
}

// Walk visits e and every descendant in pre-order. Returning false from fn
// skips the children of that node.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Children returns the direct sub-expressions of e.
func Children(e Expr) []Expr {
	switch x := e.(type) {
	case *Sum:
		return x.terms
	case *Product:
		return x.factors
	case *Power:
		return []Expr{x.base, x.exp}
	case *Call:
		return []Expr{x.arg}
	}
	return nil
}

// CountOps returns the number of operation nodes in e, counting shared
// sub-trees once per occurrence.
func CountOps(e Expr) int {
	n := 0
	Walk(e, func(x Expr) bool {
		switch y := x.(type) {
		case *Sum:
			n += len(y.terms) - 1
		case *Product:
			n += len(y.factors) - 1
		case *Power, *Call:
			n++
		}
		return true
	})
	return n
}
