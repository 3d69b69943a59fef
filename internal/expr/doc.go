// Package expr is the symbolic algebra engine behind the derivation
// pipeline.
//
// Expressions are immutable trees of constants, symbols, sums, products,
// powers and elementary function calls. The constructors (Add, Mul, Pow,
// Sin, ...) keep every tree in a canonical form: nested sums and products
// are flattened, constants are folded, like terms are collected and
// repeated bases are merged into a single power. Canonical trees make
// structural equality cheap, and each node carries a structural hash used
// by the memo caches in Diff, Subs, CSE and the Simplifier.
//
// Symbols are typed handles issued by a Registry. A symbol is identified
// by its handle, never by its name, so two mechanisms may both declare "m".
// Coordinates and speeds are time-varying; their derivatives are themselves
// symbols obtained with Dot.
//
// The Simplifier brings expressions into a rational-function normal form
// over polynomial atoms, rewriting sin² through cos² per argument. The
// normal form gives an exact zero test and drives symbolic Gauss-Jordan
// inversion.
//
// # Example
//
//	reg := expr.NewRegistry("pendulum")
//	q, _ := reg.Coordinate("q1")
//	l, _ := reg.Parameter("l")
//	x := expr.Mul(l, expr.Sin(q))
//	v := expr.DiffT(x) // l*cos(q1)*q1'
//	fmt.Println(expr.Format{Notation: expr.Mechanics}.Expr(v))
package expr
