package expr

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Sparse multivariate polynomials over the rationals. Variables are atom
// indices into an atomTable; terms are kept in descending lexicographic
// order with lower atom indices more significant.

type power struct {
	atom int
	exp  int
}

type mono []power

type term struct {
	m mono
	c *big.Rat
}

type poly struct {
	terms []term
}

func (m mono) key() string {
	var b strings.Builder
	for _, p := range m {
		b.WriteString(strconv.Itoa(p.atom))
		b.WriteByte('^')
		b.WriteString(strconv.Itoa(p.exp))
		b.WriteByte(';')
	}
	return b.String()
}

func (m mono) degree(atom int) int {
	for _, p := range m {
		if p.atom == atom {
			return p.exp
		}
	}
	return 0
}

func monoCmp(a, b mono) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].atom < b[j].atom:
			return 1
		case a[i].atom > b[j].atom:
			return -1
		case a[i].exp != b[j].exp:
			if a[i].exp > b[j].exp {
				return 1
			}
			return -1
		}
		i++
		j++
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

func monoMul(a, b mono) mono {
	out := make(mono, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].atom < b[j].atom:
			out = append(out, a[i])
			i++
		case a[i].atom > b[j].atom:
			out = append(out, b[j])
			j++
		default:
			out = append(out, power{a[i].atom, a[i].exp + b[j].exp})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// monoDivides reports whether a divides b.
func monoDivides(a, b mono) bool {
	j := 0
	for _, p := range a {
		for j < len(b) && b[j].atom < p.atom {
			j++
		}
		if j == len(b) || b[j].atom != p.atom || b[j].exp < p.exp {
			return false
		}
	}
	return true
}

// monoDiv returns b/a; a must divide b.
func monoDiv(b, a mono) mono {
	out := make(mono, 0, len(b))
	i := 0
	for _, p := range b {
		if i < len(a) && a[i].atom == p.atom {
			if e := p.exp - a[i].exp; e > 0 {
				out = append(out, power{p.atom, e})
			}
			i++
			continue
		}
		out = append(out, p)
	}
	return out
}

func monoGCD(a, b mono) mono {
	var out mono
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].atom < b[j].atom:
			i++
		case a[i].atom > b[j].atom:
			j++
		default:
			e := a[i].exp
			if b[j].exp < e {
				e = b[j].exp
			}
			out = append(out, power{a[i].atom, e})
			i++
			j++
		}
	}
	return out
}

func monoEqual(a, b mono) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func polyConst(r *big.Rat) poly {
	if r.Sign() == 0 {
		return poly{}
	}
	return poly{terms: []term{{c: new(big.Rat).Set(r)}}}
}

func polyOne() poly { return polyConst(ratOne) }

func polyAtom(atom, exp int) poly {
	return poly{terms: []term{{m: mono{{atom, exp}}, c: big.NewRat(1, 1)}}}
}

func (p poly) isZero() bool { return len(p.terms) == 0 }

func (p poly) isConst() bool {
	return len(p.terms) == 0 || (len(p.terms) == 1 && len(p.terms[0].m) == 0)
}

func (p poly) isOne() bool {
	return len(p.terms) == 1 && len(p.terms[0].m) == 0 && p.terms[0].c.Cmp(ratOne) == 0
}

func (p poly) isMonomial() bool { return len(p.terms) == 1 }

func (p poly) lead() term { return p.terms[0] }

func (p poly) equal(q poly) bool {
	if len(p.terms) != len(q.terms) {
		return false
	}
	for i := range p.terms {
		if !monoEqual(p.terms[i].m, q.terms[i].m) || p.terms[i].c.Cmp(q.terms[i].c) != 0 {
			return false
		}
	}
	return true
}

func (p poly) add(q poly) poly {
	if p.isZero() {
		return q
	}
	if q.isZero() {
		return p
	}
	out := make([]term, 0, len(p.terms)+len(q.terms))
	i, j := 0, 0
	for i < len(p.terms) && j < len(q.terms) {
		c := monoCmp(p.terms[i].m, q.terms[j].m)
		switch {
		case c > 0:
			out = append(out, p.terms[i])
			i++
		case c < 0:
			out = append(out, q.terms[j])
			j++
		default:
			s := new(big.Rat).Add(p.terms[i].c, q.terms[j].c)
			if s.Sign() != 0 {
				out = append(out, term{m: p.terms[i].m, c: s})
			}
			i++
			j++
		}
	}
	out = append(out, p.terms[i:]...)
	out = append(out, q.terms[j:]...)
	return poly{terms: out}
}

func (p poly) neg() poly { return p.scale(ratNegOne) }

func (p poly) sub(q poly) poly { return p.add(q.neg()) }

func (p poly) scale(r *big.Rat) poly {
	if r.Sign() == 0 {
		return poly{}
	}
	out := make([]term, len(p.terms))
	for i, t := range p.terms {
		out[i] = term{m: t.m, c: new(big.Rat).Mul(t.c, r)}
	}
	return poly{terms: out}
}

func (p poly) mulTerm(t term) poly {
	out := make([]term, len(p.terms))
	for i, u := range p.terms {
		out[i] = term{m: monoMul(u.m, t.m), c: new(big.Rat).Mul(u.c, t.c)}
	}
	// multiplying by a monomial preserves lexicographic order
	return poly{terms: out}
}

func (p poly) mul(q poly) poly {
	if p.isZero() || q.isZero() {
		return poly{}
	}
	if q.isMonomial() {
		return p.mulTerm(q.terms[0])
	}
	if p.isMonomial() {
		return q.mulTerm(p.terms[0])
	}
	index := make(map[string]int, len(p.terms)*len(q.terms))
	acc := make([]term, 0, len(p.terms)*len(q.terms))
	for _, a := range p.terms {
		for _, b := range q.terms {
			m := monoMul(a.m, b.m)
			k := m.key()
			c := new(big.Rat).Mul(a.c, b.c)
			if i, ok := index[k]; ok {
				acc[i].c.Add(acc[i].c, c)
				continue
			}
			index[k] = len(acc)
			acc = append(acc, term{m: m, c: c})
		}
	}
	return collect(acc)
}

// collect drops zero terms and restores the canonical order.
func collect(ts []term) poly {
	out := ts[:0]
	for _, t := range ts {
		if t.c.Sign() != 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return monoCmp(out[i].m, out[j].m) > 0 })
	return poly{terms: out}
}

func (p poly) pow(n int) poly {
	out := polyOne()
	base := p
	for n > 0 {
		if n&1 == 1 {
			out = out.mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.mul(base)
		}
	}
	return out
}

// content returns the monomial gcd of all terms.
func (p poly) content() mono {
	if p.isZero() {
		return nil
	}
	g := p.terms[0].m
	for _, t := range p.terms[1:] {
		if len(g) == 0 {
			return nil
		}
		g = monoGCD(g, t.m)
	}
	return g
}

func (p poly) divMono(m mono) poly {
	if len(m) == 0 {
		return p
	}
	out := make([]term, len(p.terms))
	for i, t := range p.terms {
		out[i] = term{m: monoDiv(t.m, m), c: t.c}
	}
	return poly{terms: out}
}

// divExact divides p by d when d divides p exactly in the free polynomial
// ring. The leading-term test fails fast on non-divisors.
func divExact(p, d poly, limit int) (poly, bool) {
	if d.isZero() {
		return poly{}, false
	}
	if p.isZero() {
		return poly{}, true
	}
	lt := d.lead()
	var q []term
	r := p
	for steps := 0; !r.isZero(); steps++ {
		if steps >= limit {
			return poly{}, false
		}
		t := r.lead()
		if !monoDivides(lt.m, t.m) {
			return poly{}, false
		}
		qt := term{m: monoDiv(t.m, lt.m), c: new(big.Rat).Quo(t.c, lt.c)}
		q = append(q, qt)
		r = r.sub(d.mulTerm(qt))
	}
	// quotient terms are produced in descending order
	return poly{terms: q}, true
}

// atomsOf returns the set of atoms used by p.
func (p poly) atomsOf(set map[int]bool) {
	for _, t := range p.terms {
		for _, pw := range t.m {
			set[pw.atom] = true
		}
	}
}

// monic scales p so its leading coefficient is one.
func (p poly) monic() poly {
	if p.isZero() {
		return p
	}
	lc := p.lead().c
	if lc.Cmp(ratOne) == 0 {
		return p
	}
	return p.scale(new(big.Rat).Inv(lc))
}
