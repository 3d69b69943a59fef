package expr

import "sort"

// Diff returns the partial derivative of e with respect to s.
func Diff(e Expr, s *Symbol) Expr {
	return diff(e, s, NewMemo())
}

func diff(e Expr, s *Symbol, m *Memo) Expr {
	switch e.(type) {
	case *Const:
		return zero
	case *Symbol:
		if e == Expr(s) {
			return one
		}
		return zero
	}
	if v, ok := m.Get(e); ok {
		return v
	}
	var out Expr
	switch x := e.(type) {
	case *Sum:
		ts := make([]Expr, len(x.terms))
		for i, t := range x.terms {
			ts[i] = diff(t, s, m)
		}
		out = Add(ts...)
	case *Product:
		var ts []Expr
		for i, f := range x.factors {
			df := diff(f, s, m)
			if IsZero(df) {
				continue
			}
			fs := make([]Expr, 0, len(x.factors))
			fs = append(fs, x.factors[:i]...)
			fs = append(fs, df)
			fs = append(fs, x.factors[i+1:]...)
			ts = append(ts, Mul(fs...))
		}
		out = Add(ts...)
	case *Power:
		db := diff(x.base, s, m)
		de := diff(x.exp, s, m)
		switch {
		case IsZero(de):
			// d(b^n) = n b^(n-1) db
			out = Mul(x.exp, Pow(x.base, Sub(x.exp, one)), db)
		default:
			out = Mul(x, Add(Mul(de, Log(x.base)), Mul(x.exp, db, Pow(x.base, negOne))))
		}
	case *Call:
		da := diff(x.arg, s, m)
		if IsZero(da) {
			out = zero
			break
		}
		var outer Expr
		switch x.fn {
		case FuncSin:
			outer = Cos(x.arg)
		case FuncCos:
			outer = Neg(Sin(x.arg))
		case FuncTan:
			outer = Add(one, Square(x))
		case FuncExp:
			outer = x
		case FuncLog:
			outer = Pow(x.arg, negOne)
		}
		out = Mul(outer, da)
	}
	m.Put(e, out)
	return out
}

// DiffT returns the total time derivative of e. Each dynamic symbol s
// contributes ∂e/∂s · s'. Parameters are constant.
func DiffT(e Expr) Expr {
	syms := Free(e)
	terms := make([]Expr, 0, len(syms))
	for _, s := range syms {
		if !s.IsDynamic() {
			continue
		}
		d := Diff(e, s)
		if IsZero(d) {
			continue
		}
		sd, _ := s.Dot()
		terms = append(terms, Mul(d, sd))
	}
	return Add(terms...)
}

// Jacobian returns the matrix ∂exprs[i]/∂syms[j].
func Jacobian(exprs []Expr, syms []*Symbol) *Matrix {
	m := NewMatrix(len(exprs), len(syms))
	for i, e := range exprs {
		for j, s := range syms {
			m.Set(i, j, Diff(e, s))
		}
	}
	return m
}

// Free returns the symbols occurring in e, sorted by name then derivative
// order then identity.
func Free(e Expr) []*Symbol {
	seen := make(map[*Symbol]bool)
	visited := NewMemo()
	var walk func(Expr)
	walk = func(x Expr) {
		if s, ok := x.(*Symbol); ok {
			seen[s] = true
			return
		}
		if _, ok := x.(*Const); ok {
			return
		}
		if _, ok := visited.Get(x); ok {
			return
		}
		visited.Put(x, x)
		for _, c := range Children(x) {
			walk(c)
		}
	}
	walk(e)
	return sortedSymbols(seen)
}

// FreeAll returns the union of the free symbols of exprs.
func FreeAll(exprs ...Expr) []*Symbol {
	seen := make(map[*Symbol]bool)
	for _, e := range exprs {
		for _, s := range Free(e) {
			seen[s] = true
		}
	}
	return sortedSymbols(seen)
}

func sortedSymbols(set map[*Symbol]bool) []*Symbol {
	out := make([]*Symbol, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	SortSymbols(out)
	return out
}

// SortSymbols orders symbols by name, ties broken by order then identity.
func SortSymbols(syms []*Symbol) {
	sort.Slice(syms, func(i, j int) bool { return compareSymbols(syms[i], syms[j]) < 0 })
}

// Contains reports whether s occurs in e.
func Contains(e Expr, s *Symbol) bool {
	found := false
	Walk(e, func(x Expr) bool {
		if found {
			return false
		}
		if x == Expr(s) {
			found = true
		}
		return !found
	})
	return found
}

// HasDerivative reports whether e contains any time-derivative symbol.
func HasDerivative(e Expr) (*Symbol, bool) {
	for _, s := range Free(e) {
		if s.IsDerivative() {
			return s, true
		}
	}
	return nil, false
}
