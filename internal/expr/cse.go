package expr

import "fmt"

// Replacement binds a temporary to a repeated sub-expression.
type Replacement struct {
	Sym  *Symbol
	Expr Expr
}

// CSE collapses sub-expressions that occur more than once across exprs into
// temporaries x0, x1, …. Replacements are ordered so each one only refers
// to earlier temporaries.
func CSE(exprs []Expr) ([]Replacement, []Expr) {
	return CSEPrefix("x", exprs)
}

// CSEPrefix is CSE with a custom temporary name prefix.
func CSEPrefix(prefix string, exprs []Expr) ([]Replacement, []Expr) {
	counts := NewMemo()
	seen := func(e Expr) int {
		v, ok := counts.Get(e)
		if !ok {
			return 0
		}
		return int(v.(*Const).Float())
	}
	var count func(Expr)
	count = func(e Expr) {
		if trivial(e) {
			return
		}
		n := seen(e)
		counts.Put(e, Int(int64(n+1)))
		if n > 0 {
			return
		}
		for _, c := range Children(e) {
			count(c)
		}
	}
	for _, e := range exprs {
		count(e)
	}

	reg := NewRegistry("cse")
	var repl []Replacement
	done := NewMemo()
	var rebuild func(Expr) Expr
	rebuild = func(e Expr) Expr {
		if trivial(e) {
			return e
		}
		if v, ok := done.Get(e); ok {
			return v
		}
		kids := Children(e)
		nk := make([]Expr, len(kids))
		for i, k := range kids {
			nk[i] = rebuild(k)
		}
		var out Expr = rawRebuild(e, nk)
		if seen(e) > 1 {
			sym, err := reg.Parameter(fmt.Sprintf("%s%d", prefix, len(repl)))
			if err != nil {
				panic(err)
			}
			repl = append(repl, Replacement{Sym: sym, Expr: out})
			out = sym
		}
		done.Put(e, out)
		return out
	}
	reduced := make([]Expr, len(exprs))
	for i, e := range exprs {
		reduced[i] = rebuild(e)
	}
	return repl, reduced
}

// trivial nodes are never worth a temporary: leaves and negated leaves.
func trivial(e Expr) bool {
	switch x := e.(type) {
	case *Const, *Symbol:
		return true
	case *Product:
		if len(x.factors) == 2 {
			if _, ok := x.factors[0].(*Const); ok {
				switch x.factors[1].(type) {
				case *Const, *Symbol:
					return true
				}
			}
		}
	}
	return false
}

// rawRebuild rebuilds a node from replaced children without
// canonicalisation, so temporaries keep the structure they stand for.
func rawRebuild(e Expr, kids []Expr) Expr {
	same := true
	old := Children(e)
	for i := range kids {
		if kids[i] != old[i] {
			same = false
			break
		}
	}
	if same {
		return e
	}
	switch x := e.(type) {
	case *Sum:
		return newSum(kids)
	case *Product:
		return newProduct(kids)
	case *Power:
		return newPower(kids[0], kids[1])
	case *Call:
		return newCall(x.fn, kids[0])
	}
	return e
}
