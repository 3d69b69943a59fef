package expr

import (
	"context"
	"fmt"
	"math/big"
	"sort"
)

// DefaultDivisionSteps caps a single exact polynomial division.
const DefaultDivisionSteps = 4000

// maxFactors bounds the candidate denominator factors a Simplifier keeps.
const maxFactors = 512

// atomTable assigns polynomial variable indices to the non-polynomial
// leaves of an expression: symbols, trig calls, radicals.
type atomTable struct {
	atoms []Expr
	index map[uint64][]int
	// partner maps a sin atom to its cos atom and back
	partner map[int]int
	isSin   map[int]bool
}

func newAtomTable() *atomTable {
	return &atomTable{
		index:   make(map[uint64][]int),
		partner: make(map[int]int),
		isSin:   make(map[int]bool),
	}
}

func (t *atomTable) lookup(e Expr) (int, bool) {
	for _, i := range t.index[e.Hash()] {
		if Equal(t.atoms[i], e) {
			return i, true
		}
	}
	return 0, false
}

func (t *atomTable) intern(e Expr) int {
	if i, ok := t.lookup(e); ok {
		return i
	}
	i := len(t.atoms)
	t.atoms = append(t.atoms, e)
	t.index[e.Hash()] = append(t.index[e.Hash()], i)
	if c, ok := e.(*Call); ok && (c.fn == FuncSin || c.fn == FuncCos) {
		t.isSin[i] = c.fn == FuncSin
		other := newCall(FuncCos, c.arg)
		if c.fn == FuncCos {
			other = newCall(FuncSin, c.arg)
		}
		if j, ok := t.lookup(other); ok {
			t.partner[i] = j
			t.partner[j] = i
		}
	}
	return i
}

// pairOf returns the partner of a sin or cos atom, creating it if needed.
func (t *atomTable) pairOf(i int) int {
	if j, ok := t.partner[i]; ok {
		return j
	}
	c := t.atoms[i].(*Call)
	fn := FuncCos
	if c.fn == FuncCos {
		fn = FuncSin
	}
	return t.intern(newCall(fn, c.arg))
}

// pythag rewrites from^k, k >= 2, as from^(k mod 2) (1 - to^2)^(k/2) for every
// pair (from, to) in pairs.
func (t *atomTable) pythag(p poly, pairs map[int]int) poly {
	if len(pairs) == 0 || p.isZero() {
		return p
	}
	touched := false
	for _, tm := range p.terms {
		for _, pw := range tm.m {
			if _, ok := pairs[pw.atom]; ok && pw.exp >= 2 {
				touched = true
				break
			}
		}
		if touched {
			break
		}
	}
	if !touched {
		return p
	}
	cache := make(map[[2]int]poly)
	oneMinus := func(to, n int) poly {
		k := [2]int{to, n}
		if v, ok := cache[k]; ok {
			return v
		}
		v := polyOne().sub(polyAtom(to, 2)).pow(n)
		cache[k] = v
		return v
	}
	var out poly
	for _, tm := range p.terms {
		rest := make(mono, 0, len(tm.m))
		factor := polyOne()
		for _, pw := range tm.m {
			to, ok := pairs[pw.atom]
			if !ok || pw.exp < 2 {
				rest = append(rest, pw)
				continue
			}
			if pw.exp%2 == 1 {
				rest = append(rest, power{pw.atom, 1})
			}
			factor = factor.mul(oneMinus(to, pw.exp/2))
		}
		out = out.add(factor.mulTerm(term{m: rest, c: tm.c}))
	}
	return out
}

// sinPairs returns the sin→cos rewrite pairs for atoms used by polys.
func (t *atomTable) sinPairs(ps ...poly) map[int]int {
	used := make(map[int]bool)
	for _, p := range ps {
		p.atomsOf(used)
	}
	pairs := make(map[int]int)
	for i := range used {
		if s, ok := t.isSin[i]; ok && s {
			pairs[i] = t.pairOf(i)
		}
	}
	return pairs
}

type ratfn struct {
	num, den poly
	inexact  bool
}

func ratConst(r *big.Rat, inexact bool) ratfn {
	return ratfn{num: polyConst(r), den: polyOne(), inexact: inexact}
}

// Simplifier rewrites expressions into a rational-function normal form in
// which sin^2 is always expressed through cos^2. Two expressions are equal
// as functions when their normal forms agree, so the form doubles as an
// exact zero test. A Simplifier caches results and learns denominator
// factors, so reuse one across related expressions.
type Simplifier struct {
	atoms   *atomTable
	memo    *Memo
	rats    map[uint64][]ratEntry
	factors []poly

	// DivisionSteps bounds each exact division attempt.
	DivisionSteps int

	ctx context.Context
}

type ratEntry struct {
	key Expr
	val ratfn
}

// NewSimplifier returns a Simplifier with an empty cache.
func NewSimplifier() *Simplifier {
	return &Simplifier{
		atoms:         newAtomTable(),
		memo:          NewMemo(),
		rats:          make(map[uint64][]ratEntry),
		DivisionSteps: DefaultDivisionSteps,
		ctx:           context.Background(),
	}
}

// Simplify returns the simplified form of e using a throwaway Simplifier.
func Simplify(e Expr) Expr { return NewSimplifier().Simplify(e) }

// Equivalent reports whether a and b are identical as functions.
func Equivalent(a, b Expr) bool { return NewSimplifier().IsZero(Sub(a, b)) }

// Simplify returns the smaller of e and its normal form, preferring the
// normal form on ties.
func (s *Simplifier) Simplify(e Expr) Expr {
	out, err := s.SimplifyContext(context.Background(), e)
	if err != nil {
		return e
	}
	return out
}

// SimplifyContext is Simplify with cancellation.
func (s *Simplifier) SimplifyContext(ctx context.Context, e Expr) (Expr, error) {
	switch e.(type) {
	case *Const, *Symbol:
		return e, nil
	}
	if v, ok := s.memo.Get(e); ok {
		return v, nil
	}
	prev := s.ctx
	s.ctx = ctx
	defer func() { s.ctx = prev }()
	r, err := s.toRat(e)
	if err != nil {
		return nil, err
	}
	out := s.fromRat(r)
	if CountOps(out) > CountOps(e) {
		out = e
	}
	s.memo.Put(e, out)
	return out, nil
}

// IsZero reports whether e is identically zero.
func (s *Simplifier) IsZero(e Expr) bool {
	if c, ok := e.(*Const); ok {
		return c.val.Sign() == 0
	}
	r, err := s.toRat(e)
	if err != nil {
		return false
	}
	return r.num.isZero()
}

// Equivalent reports whether a and b are identical as functions.
func (s *Simplifier) Equivalent(a, b Expr) bool { return s.IsZero(Sub(a, b)) }

func (s *Simplifier) cached(e Expr) (ratfn, bool) {
	for _, en := range s.rats[e.Hash()] {
		if Equal(en.key, e) {
			return en.val, true
		}
	}
	return ratfn{}, false
}

func (s *Simplifier) toRat(e Expr) (ratfn, error) {
	switch x := e.(type) {
	case *Const:
		return ratConst(x.val, x.inexact), nil
	case *Symbol:
		return ratfn{num: polyAtom(s.atoms.intern(x), 1), den: polyOne()}, nil
	}
	if r, ok := s.cached(e); ok {
		return r, nil
	}
	if err := s.ctx.Err(); err != nil {
		return ratfn{}, err
	}
	r, err := s.convert(e)
	if err != nil {
		return ratfn{}, err
	}
	s.rats[e.Hash()] = append(s.rats[e.Hash()], ratEntry{key: e, val: r})
	return r, nil
}

func (s *Simplifier) convert(e Expr) (ratfn, error) {
	switch x := e.(type) {
	case *Sum:
		acc := ratConst(ratZero, false)
		for _, t := range x.terms {
			r, err := s.toRat(t)
			if err != nil {
				return ratfn{}, err
			}
			acc = s.addRaw(acc, r)
		}
		return s.normalize(acc), nil
	case *Product:
		acc := ratConst(ratOne, false)
		for _, f := range x.factors {
			r, err := s.toRat(f)
			if err != nil {
				return ratfn{}, err
			}
			acc = ratfn{num: acc.num.mul(r.num), den: acc.den.mul(r.den), inexact: acc.inexact || r.inexact}
		}
		return s.normalize(acc), nil
	case *Power:
		return s.convertPower(x)
	case *Call:
		arg, err := s.SimplifyContext(s.ctx, x.arg)
		if err != nil {
			return ratfn{}, err
		}
		if x.fn == FuncTan {
			return s.toRat(Div(Sin(arg), Cos(arg)))
		}
		c := Apply(x.fn, arg)
		if cc, ok := c.(*Call); ok {
			return ratfn{num: polyAtom(s.atoms.intern(cc), 1), den: polyOne()}, nil
		}
		return s.toRat(c)
	}
	return ratfn{}, fmt.Errorf("%w: %T", ErrNotNumeric, e)
}

func (s *Simplifier) convertPower(x *Power) (ratfn, error) {
	ec, ok := x.exp.(*Const)
	if !ok {
		base, err := s.SimplifyContext(s.ctx, x.base)
		if err != nil {
			return ratfn{}, err
		}
		exp, err := s.SimplifyContext(s.ctx, x.exp)
		if err != nil {
			return ratfn{}, err
		}
		return s.atomRat(Pow(base, exp))
	}
	if ec.val.IsInt() && ec.val.Num().IsInt64() && absInt64(ec.val.Num().Int64()) <= maxExactPower {
		n := ec.val.Num().Int64()
		b, err := s.toRat(x.base)
		if err != nil {
			return ratfn{}, err
		}
		return s.powRat(b, int(n))
	}
	// b^(p/q) = (b^(1/q))^p with b^(1/q) an atom
	base, err := s.SimplifyContext(s.ctx, x.base)
	if err != nil {
		return ratfn{}, err
	}
	if !ec.val.IsInt() && ec.val.Num().IsInt64() && ec.val.Denom().IsInt64() && !ec.inexact {
		p := ec.val.Num().Int64()
		q := ec.val.Denom().Int64()
		root := Pow(base, Rat(1, q))
		r, err := s.atomRat(root)
		if err != nil {
			return ratfn{}, err
		}
		if absInt64(p) <= maxExactPower {
			return s.powRat(r, int(p))
		}
	}
	return s.atomRat(Pow(base, x.exp))
}

func (s *Simplifier) atomRat(e Expr) (ratfn, error) {
	switch e.(type) {
	case *Const, *Symbol, *Sum, *Product:
		return s.toRat(e)
	}
	return ratfn{num: polyAtom(s.atoms.intern(e), 1), den: polyOne()}, nil
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func (s *Simplifier) powRat(b ratfn, n int) (ratfn, error) {
	if n < 0 {
		if b.num.isZero() {
			return ratfn{}, ErrDivisionByZero
		}
		s.addFactor(b.num)
		b = ratfn{num: b.den, den: b.num, inexact: b.inexact}
		n = -n
	}
	return s.normalize(ratfn{num: b.num.pow(n), den: b.den.pow(n), inexact: b.inexact}), nil
}

func (s *Simplifier) addFactor(p poly) {
	if len(p.terms) < 2 || len(s.factors) >= maxFactors {
		return
	}
	p = p.divMono(p.content()).monic()
	for _, f := range s.factors {
		if f.equal(p) {
			return
		}
	}
	s.factors = append(s.factors, p)
}

// addRaw adds without normalising.
func (s *Simplifier) addRaw(a, b ratfn) ratfn {
	inexact := a.inexact || b.inexact
	switch {
	case a.num.isZero():
		b.inexact = inexact
		return b
	case b.num.isZero():
		a.inexact = inexact
		return a
	case a.den.equal(b.den):
		return ratfn{num: a.num.add(b.num), den: a.den, inexact: inexact}
	case b.den.isOne():
		return ratfn{num: a.num.add(b.num.mul(a.den)), den: a.den, inexact: inexact}
	case a.den.isOne():
		return ratfn{num: b.num.add(a.num.mul(b.den)), den: b.den, inexact: inexact}
	}
	if q, ok := divExact(a.den, b.den, s.DivisionSteps); ok {
		return ratfn{num: a.num.add(b.num.mul(q)), den: a.den, inexact: inexact}
	}
	if q, ok := divExact(b.den, a.den, s.DivisionSteps); ok {
		return ratfn{num: b.num.add(a.num.mul(q)), den: b.den, inexact: inexact}
	}
	return ratfn{
		num:     a.num.mul(b.den).add(b.num.mul(a.den)),
		den:     a.den.mul(b.den),
		inexact: inexact,
	}
}

func (s *Simplifier) add(a, b ratfn) ratfn { return s.normalize(s.addRaw(a, b)) }

func (s *Simplifier) sub(a, b ratfn) ratfn {
	return s.add(a, ratfn{num: b.num.neg(), den: b.den, inexact: b.inexact})
}

func (s *Simplifier) mul(a, b ratfn) ratfn {
	return s.normalize(ratfn{num: a.num.mul(b.num), den: a.den.mul(b.den), inexact: a.inexact || b.inexact})
}

func (s *Simplifier) div(a, b ratfn) (ratfn, error) {
	if b.num.isZero() {
		return ratfn{}, ErrDivisionByZero
	}
	s.addFactor(b.num)
	return s.normalize(ratfn{num: a.num.mul(b.den), den: a.den.mul(b.num), inexact: a.inexact || b.inexact}), nil
}

func cancelContent(r ratfn) ratfn {
	g := monoGCD(r.num.content(), r.den.content())
	if len(g) == 0 {
		return r
	}
	return ratfn{num: r.num.divMono(g), den: r.den.divMono(g), inexact: r.inexact}
}

func normalizeLead(r ratfn) ratfn {
	lc := r.den.lead().c
	if lc.Cmp(ratOne) == 0 {
		return r
	}
	inv := new(big.Rat).Inv(lc)
	return ratfn{num: r.num.scale(inv), den: r.den.scale(inv), inexact: r.inexact}
}

// normalize brings r into canonical form: monomial content cancelled,
// sin^2 rewritten through cos^2, common factors divided out, denominator
// leading coefficient one.
func (s *Simplifier) normalize(r ratfn) ratfn {
	if r.num.isZero() {
		return ratfn{num: poly{}, den: polyOne(), inexact: r.inexact}
	}
	if r.den.isZero() {
		// unreachable through the public constructors
		panic("expr: zero denominator in normal form")
	}
	r = cancelContent(r)
	pairs := s.atoms.sinPairs(r.num, r.den)
	if len(pairs) > 0 {
		r.num = s.atoms.pythag(r.num, pairs)
		r.den = s.atoms.pythag(r.den, pairs)
		if r.num.isZero() {
			return ratfn{num: poly{}, den: polyOne(), inexact: r.inexact}
		}
		r = cancelContent(r)
	}
	r = normalizeLead(r)
	if r.den.isConst() {
		return r
	}
	if len(r.num.terms) >= len(r.den.terms) {
		if q, ok := divExact(r.num, r.den, s.DivisionSteps); ok {
			return ratfn{num: q, den: polyOne(), inexact: r.inexact}
		}
	}
	if len(r.num.terms) > 1 && len(r.den.terms) >= len(r.num.terms) {
		if q, ok := divExact(r.den, r.num, s.DivisionSteps); ok {
			return normalizeLead(ratfn{num: polyOne(), den: q, inexact: r.inexact})
		}
	}
	for _, f := range s.factors {
		if len(f.terms) > len(r.den.terms) {
			continue
		}
		for {
			qd, ok := divExact(r.den, f, s.DivisionSteps)
			if !ok {
				break
			}
			qn, ok := divExact(r.num, f, s.DivisionSteps)
			if !ok {
				break
			}
			r.num, r.den = qn, qd
		}
		if r.den.isConst() {
			break
		}
	}
	r = cancelContent(r)
	return normalizeLead(r)
}

// fromRat rebuilds an expression, choosing per trig argument whichever of
// the cos or sin form has fewer terms.
func (s *Simplifier) fromRat(r ratfn) Expr {
	if r.num.isZero() {
		if r.inexact {
			return Float(0)
		}
		return zero
	}
	used := make(map[int]bool)
	r.num.atomsOf(used)
	r.den.atomsOf(used)
	idx := make([]int, 0, len(used))
	for i := range used {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		isSin, ok := s.atoms.isSin[i]
		if !ok || isSin {
			continue
		}
		sin := s.atoms.pairOf(i)
		pairs := map[int]int{i: sin}
		num := s.atoms.pythag(r.num, pairs)
		den := s.atoms.pythag(r.den, pairs)
		if len(num.terms)+len(den.terms) < len(r.num.terms)+len(r.den.terms) {
			r.num, r.den = num, den
		}
	}
	numE := s.polyExpr(r.num, r.inexact)
	if r.den.isOne() {
		return numE
	}
	denE := s.polyExpr(r.den, r.inexact)
	if r.den.isMonomial() && len(r.num.terms) > 1 {
		inv := Pow(denE, negOne)
		terms := make([]Expr, len(r.num.terms))
		for i, t := range r.num.terms {
			terms[i] = Mul(s.termExpr(t, r.inexact), inv)
		}
		return Add(terms...)
	}
	return Mul(numE, Pow(denE, negOne))
}

func (s *Simplifier) termExpr(t term, inexact bool) Expr {
	fs := make([]Expr, 0, len(t.m)+1)
	fs = append(fs, constOf(new(big.Rat).Set(t.c), inexact && !t.c.IsInt()))
	for _, pw := range t.m {
		fs = append(fs, Pow(s.atoms.atoms[pw.atom], Int(int64(pw.exp))))
	}
	return Mul(fs...)
}

func (s *Simplifier) polyExpr(p poly, inexact bool) Expr {
	if p.isZero() {
		return zero
	}
	g := p.content()
	rest := p.divMono(g)
	terms := make([]Expr, len(rest.terms))
	for i, t := range rest.terms {
		terms[i] = s.termExpr(t, inexact)
	}
	body := Add(terms...)
	if len(g) == 0 {
		return body
	}
	fs := []Expr{body}
	for _, pw := range g {
		fs = append(fs, Pow(s.atoms.atoms[pw.atom], Int(int64(pw.exp))))
	}
	return Mul(fs...)
}
