package expr

import (
	"math"
	"math/big"
	"sort"
)

var (
	ratZero   = big.NewRat(0, 1)
	ratOne    = big.NewRat(1, 1)
	ratNegOne = big.NewRat(-1, 1)

	zero   = newConst(new(big.Rat), false)
	one    = newConst(big.NewRat(1, 1), false)
	negOne = newConst(big.NewRat(-1, 1), false)
)

// maxExactPower bounds exact rational exponentiation of constants.
const maxExactPower = 64

// Zero returns the constant 0.
func Zero() Expr { return zero }

// One returns the constant 1.
func One() Expr { return one }

// Int returns an exact integer constant.
func Int(n int64) Expr {
	switch n {
	case 0:
		return zero
	case 1:
		return one
	case -1:
		return negOne
	}
	return newConst(big.NewRat(n, 1), false)
}

// Rat returns the exact constant p/q.
func Rat(p, q int64) Expr {
	if q == 0 {
		panic("expr: zero denominator")
	}
	return newConst(big.NewRat(p, q), false)
}

// Float returns an inexact constant. Non-finite values are not representable
// and yield a NaN-free zero; callers validate finiteness first.
func Float(f float64) Expr {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return zero
	}
	r := new(big.Rat)
	r.SetFloat64(f)
	return newConst(r, true)
}

func constOf(r *big.Rat, inexact bool) Expr {
	if !inexact {
		switch {
		case r.Sign() == 0:
			return zero
		case r.Cmp(ratOne) == 0:
			return one
		case r.Cmp(ratNegOne) == 0:
			return negOne
		}
	}
	return newConst(r, inexact)
}

// splitCoeff separates a numeric coefficient from the rest of a term.
func splitCoeff(e Expr) (*Const, Expr) {
	if p, ok := e.(*Product); ok {
		if c, ok := p.factors[0].(*Const); ok {
			rest := p.factors[1:]
			if len(rest) == 1 {
				return c, rest[0]
			}
			return c, newProduct(append([]Expr(nil), rest...))
		}
	}
	if c, ok := e.(*Const); ok {
		return c, one
	}
	return one, e
}

// baseExp splits e into base and exponent.
func baseExp(e Expr) (Expr, Expr) {
	if p, ok := e.(*Power); ok {
		return p.base, p.exp
	}
	return e, one
}

type termGroup struct {
	rest    Expr
	coeff   *big.Rat
	inexact bool
}

// Add returns the canonical sum of the terms.
func Add(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if s, ok := t.(*Sum); ok {
			flat = append(flat, s.terms...)
			continue
		}
		flat = append(flat, t)
	}

	acc := new(big.Rat)
	accInexact := false
	index := make(map[uint64][]int)
	var groups []*termGroup
	for _, t := range flat {
		c, rest := splitCoeff(t)
		if IsOne(rest) {
			acc.Add(acc, c.val)
			accInexact = accInexact || c.inexact
			continue
		}
		h := rest.Hash()
		found := -1
		for _, gi := range index[h] {
			if Equal(groups[gi].rest, rest) {
				found = gi
				break
			}
		}
		if found < 0 {
			index[h] = append(index[h], len(groups))
			groups = append(groups, &termGroup{rest: rest, coeff: new(big.Rat).Set(c.val), inexact: c.inexact})
			continue
		}
		g := groups[found]
		g.coeff.Add(g.coeff, c.val)
		g.inexact = g.inexact || c.inexact
	}

	out := make([]Expr, 0, len(groups)+1)
	for _, g := range groups {
		if g.coeff.Sign() == 0 {
			continue
		}
		out = append(out, scaleTerm(g.coeff, g.inexact, g.rest))
	}
	sort.SliceStable(out, func(i, j int) bool { return compareTerms(out[i], out[j]) < 0 })
	if acc.Sign() != 0 || (len(out) == 0 && accInexact) {
		out = append([]Expr{constOf(acc, accInexact)}, out...)
	}
	switch len(out) {
	case 0:
		return zero
	case 1:
		return out[0]
	}
	return newSum(out)
}

// scaleTerm rebuilds c*rest without re-running Mul.
func scaleTerm(c *big.Rat, inexact bool, rest Expr) Expr {
	if c.Cmp(ratOne) == 0 && !inexact {
		return rest
	}
	k := constOf(c, inexact)
	if p, ok := rest.(*Product); ok {
		fs := make([]Expr, 0, len(p.factors)+1)
		fs = append(fs, k)
		fs = append(fs, p.factors...)
		return newProduct(fs)
	}
	return newProduct([]Expr{k, rest})
}

func compareTerms(a, b Expr) int {
	_, ra := splitCoeff(a)
	_, rb := splitCoeff(b)
	return Compare(ra, rb)
}

func compareFactors(a, b Expr) int {
	ba, ea := baseExp(a)
	bb, eb := baseExp(b)
	if c := Compare(ba, bb); c != 0 {
		return c
	}
	return Compare(ea, eb)
}

type factorGroup struct {
	base Expr
	exps []Expr
}

// Mul returns the canonical product of the factors.
func Mul(factors ...Expr) Expr {
	coeff := new(big.Rat).SetInt64(1)
	inexact := false
	index := make(map[uint64][]int)
	var groups []*factorGroup

	var push func(f Expr)
	push = func(f Expr) {
		switch x := f.(type) {
		case *Product:
			for _, y := range x.factors {
				push(y)
			}
			return
		case *Const:
			coeff.Mul(coeff, x.val)
			inexact = inexact || x.inexact
			return
		}
		b, e := baseExp(f)
		h := b.Hash()
		for _, gi := range index[h] {
			if Equal(groups[gi].base, b) {
				groups[gi].exps = append(groups[gi].exps, e)
				return
			}
		}
		index[h] = append(index[h], len(groups))
		groups = append(groups, &factorGroup{base: b, exps: []Expr{e}})
	}
	for _, f := range factors {
		push(f)
	}
	if coeff.Sign() == 0 {
		return zero
	}

	out := make([]Expr, 0, len(groups))
	for _, g := range groups {
		var p Expr
		if len(g.exps) == 1 {
			p = Pow(g.base, g.exps[0])
		} else {
			p = Pow(g.base, Add(g.exps...))
		}
		switch x := p.(type) {
		case *Const:
			coeff.Mul(coeff, x.val)
			inexact = inexact || x.inexact
		case *Product:
			for _, y := range x.factors {
				if c, ok := y.(*Const); ok {
					coeff.Mul(coeff, c.val)
					inexact = inexact || c.inexact
					continue
				}
				out = append(out, y)
			}
		default:
			out = append(out, p)
		}
	}
	if coeff.Sign() == 0 {
		return zero
	}
	sort.SliceStable(out, func(i, j int) bool { return compareFactors(out[i], out[j]) < 0 })

	if len(out) == 0 {
		return constOf(coeff, inexact)
	}
	unit := coeff.Cmp(ratOne) == 0 && !inexact
	if len(out) == 1 {
		if unit {
			return out[0]
		}
		// distribute a bare coefficient over a sum
		if s, ok := out[0].(*Sum); ok {
			k := constOf(coeff, inexact)
			terms := make([]Expr, len(s.terms))
			for i, t := range s.terms {
				terms[i] = Mul(k, t)
			}
			return Add(terms...)
		}
	}
	if !unit {
		out = append([]Expr{constOf(coeff, inexact)}, out...)
	}
	return newProduct(out)
}

// Neg returns -e.
func Neg(e Expr) Expr { return Mul(negOne, e) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }

// Div returns a / b.
func Div(a, b Expr) Expr { return Mul(a, Pow(b, negOne)) }

// Square returns e*e.
func Square(e Expr) Expr { return Pow(e, Int(2)) }

// Sqrt returns e^(1/2).
func Sqrt(e Expr) Expr { return Pow(e, Rat(1, 2)) }

// Pow returns the canonical power base^exp.
func Pow(base, exp Expr) Expr {
	ec, expConst := exp.(*Const)
	if expConst {
		if ec.val.Sign() == 0 {
			return one
		}
		if ec.val.Cmp(ratOne) == 0 && !ec.inexact {
			return base
		}
	}
	if bc, ok := base.(*Const); ok {
		if r, ok := powConst(bc, exp); ok {
			return r
		}
		return newPower(base, exp)
	}
	if !expConst || !ec.val.IsInt() {
		return newPower(base, exp)
	}
	switch b := base.(type) {
	case *Power:
		return Pow(b.base, Mul(b.exp, exp))
	case *Product:
		fs := make([]Expr, len(b.factors))
		for i, f := range b.factors {
			fs[i] = Pow(f, exp)
		}
		return Mul(fs...)
	}
	return newPower(base, exp)
}

func powConst(b *Const, exp Expr) (Expr, bool) {
	switch {
	case b.val.Sign() == 0:
		if ec, ok := exp.(*Const); ok && ec.val.Sign() > 0 {
			return zero, true
		}
		return nil, false
	case b.val.Cmp(ratOne) == 0 && !b.inexact:
		return one, true
	}
	ec, ok := exp.(*Const)
	if !ok {
		return nil, false
	}
	inexact := b.inexact || ec.inexact
	if ec.val.IsInt() && ec.val.Num().IsInt64() {
		n := ec.val.Num().Int64()
		if n >= -maxExactPower && n <= maxExactPower {
			return constOf(ratPow(b.val, n), inexact), true
		}
	}
	if !inexact {
		// keep exact irrationals such as 2^(1/2) symbolic
		return nil, false
	}
	f := math.Pow(b.Float(), ec.Float())
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return Float(f), true
}

func ratPow(r *big.Rat, n int64) *big.Rat {
	neg := n < 0
	if neg {
		n = -n
	}
	num := new(big.Int).Exp(r.Num(), big.NewInt(n), nil)
	den := new(big.Int).Exp(r.Denom(), big.NewInt(n), nil)
	if neg {
		num, den = den, num
	}
	return new(big.Rat).SetFrac(num, den)
}

func negativeCoeff(e Expr) bool {
	c, _ := splitCoeff(e)
	return c.val.Sign() < 0
}

// Sin returns sin(x).
func Sin(x Expr) Expr {
	if c, ok := x.(*Const); ok {
		if c.val.Sign() == 0 {
			return zero
		}
		if c.inexact {
			return Float(math.Sin(c.Float()))
		}
	}
	if negativeCoeff(x) {
		return Neg(newCall(FuncSin, Neg(x)))
	}
	return newCall(FuncSin, x)
}

// Cos returns cos(x).
func Cos(x Expr) Expr {
	if c, ok := x.(*Const); ok {
		if c.val.Sign() == 0 {
			return one
		}
		if c.inexact {
			return Float(math.Cos(c.Float()))
		}
	}
	if negativeCoeff(x) {
		return newCall(FuncCos, Neg(x))
	}
	return newCall(FuncCos, x)
}

// Tan returns tan(x).
func Tan(x Expr) Expr {
	if c, ok := x.(*Const); ok {
		if c.val.Sign() == 0 {
			return zero
		}
		if c.inexact {
			return Float(math.Tan(c.Float()))
		}
	}
	if negativeCoeff(x) {
		return Neg(newCall(FuncTan, Neg(x)))
	}
	return newCall(FuncTan, x)
}

// Exp returns e^x.
func Exp(x Expr) Expr {
	if c, ok := x.(*Const); ok {
		if c.val.Sign() == 0 {
			return one
		}
		if c.inexact {
			return Float(math.Exp(c.Float()))
		}
	}
	if l, ok := x.(*Call); ok && l.fn == FuncLog {
		return l.arg
	}
	return newCall(FuncExp, x)
}

// Log returns the natural logarithm of x.
func Log(x Expr) Expr {
	if c, ok := x.(*Const); ok {
		if c.val.Cmp(ratOne) == 0 {
			return zero
		}
		if c.inexact && c.val.Sign() > 0 {
			return Float(math.Log(c.Float()))
		}
	}
	if e, ok := x.(*Call); ok && e.fn == FuncExp {
		return e.arg
	}
	return newCall(FuncLog, x)
}

// Apply calls the constructor for fn.
func Apply(fn Func, x Expr) Expr {
	switch fn {
	case FuncSin:
		return Sin(x)
	case FuncCos:
		return Cos(x)
	case FuncTan:
		return Tan(x)
	case FuncExp:
		return Exp(x)
	default:
		return Log(x)
	}
}

// Rebuild reconstructs a node of the same shape as e from new children.
// Children must be given in the order returned by Children.
func Rebuild(e Expr, kids []Expr) Expr {
	switch x := e.(type) {
	case *Sum:
		return Add(kids...)
	case *Product:
		return Mul(kids...)
	case *Power:
		return Pow(kids[0], kids[1])
	case *Call:
		return Apply(x.fn, kids[0])
	}
	return e
}
