package expr

import (
	"fmt"
	"math"
)

// Subs replaces symbols in e according to m and re-canonicalises the result.
func Subs(e Expr, m map[*Symbol]Expr) Expr {
	if len(m) == 0 {
		return e
	}
	return subs(e, m, NewMemo())
}

// SubsAll applies the same substitution to every expression, sharing one
// cache across them.
func SubsAll(exprs []Expr, m map[*Symbol]Expr) []Expr {
	out := make([]Expr, len(exprs))
	memo := NewMemo()
	for i, e := range exprs {
		if len(m) == 0 {
			out[i] = e
			continue
		}
		out[i] = subs(e, m, memo)
	}
	return out
}

func subs(e Expr, m map[*Symbol]Expr, memo *Memo) Expr {
	switch x := e.(type) {
	case *Const:
		return e
	case *Symbol:
		if r, ok := m[x]; ok {
			return r
		}
		return e
	}
	if v, ok := memo.Get(e); ok {
		return v
	}
	kids := Children(e)
	nk := make([]Expr, len(kids))
	changed := false
	for i, k := range kids {
		nk[i] = subs(k, m, memo)
		if nk[i] != k {
			changed = true
		}
	}
	out := e
	if changed {
		out = Rebuild(e, nk)
	}
	memo.Put(e, out)
	return out
}

// Bind converts numeric bindings into a substitution map of float constants.
func Bind(vals map[*Symbol]float64) map[*Symbol]Expr {
	m := make(map[*Symbol]Expr, len(vals))
	for s, v := range vals {
		m[s] = Float(v)
	}
	return m
}

// Eval evaluates e numerically. Every free symbol must be bound.
func Eval(e Expr, env map[*Symbol]float64) (float64, error) {
	switch x := e.(type) {
	case *Const:
		return x.Float(), nil
	case *Symbol:
		v, ok := env[x]
		if !ok {
			return math.NaN(), fmt.Errorf("%w: %s", ErrUnbound, x)
		}
		return v, nil
	case *Sum:
		acc := 0.0
		for _, t := range x.terms {
			v, err := Eval(t, env)
			if err != nil {
				return v, err
			}
			acc += v
		}
		return acc, nil
	case *Product:
		acc := 1.0
		for _, f := range x.factors {
			v, err := Eval(f, env)
			if err != nil {
				return v, err
			}
			acc *= v
		}
		return acc, nil
	case *Power:
		b, err := Eval(x.base, env)
		if err != nil {
			return b, err
		}
		if c, ok := x.exp.(*Const); ok && c.IsInt() {
			return powInt(b, c.Float()), nil
		}
		p, err := Eval(x.exp, env)
		if err != nil {
			return p, err
		}
		return math.Pow(b, p), nil
	case *Call:
		a, err := Eval(x.arg, env)
		if err != nil {
			return a, err
		}
		return CallFloat(x.fn, a), nil
	}
	return math.NaN(), ErrNotNumeric
}

func powInt(b, n float64) float64 {
	switch n {
	case 2:
		return b * b
	case -1:
		return 1 / b
	case -2:
		return 1 / (b * b)
	}
	return math.Pow(b, n)
}

// CallFloat evaluates an elementary function on a float.
func CallFloat(fn Func, a float64) float64 {
	switch fn {
	case FuncSin:
		return math.Sin(a)
	case FuncCos:
		return math.Cos(a)
	case FuncTan:
		return math.Tan(a)
	case FuncExp:
		return math.Exp(a)
	default:
		return math.Log(a)
	}
}
