package mechanics

import (
	"strings"

	"github.com/san-kum/kanedyn/internal/expr"
)

// Frame is an oriented orthonormal basis. Every frame except the base frame
// has a parent and a direction cosine matrix relative to it.
type Frame struct {
	name   string
	g      *Graph
	parent *Frame
	idx    int
	// dcm maps components in this frame to components in the parent frame.
	dcm [3][3]expr.Expr
	// rel is the angular velocity relative to the parent when known in
	// closed form.
	rel *Vector
	// abs overrides the derived angular velocity in the base frame.
	abs *Vector
}

func (f *Frame) Name() string   { return f.name }
func (f *Frame) Parent() *Frame { return f.parent }
func (f *Frame) Graph() *Graph  { return f.g }
func (f *Frame) String() string { return f.name }
func (f *Frame) X() Vector      { return f.Unit(0) }
func (f *Frame) Y() Vector      { return f.Unit(1) }
func (f *Frame) Z() Vector      { return f.Unit(2) }
func (f *Frame) IsBase() bool   { return f.parent == nil }

// DCMToParent returns the matrix mapping components in f to components in
// its parent.
func (f *Frame) DCMToParent() [3][3]expr.Expr { return f.dcm }

// Unit returns basis vector i (0, 1 or 2).
func (f *Frame) Unit(i int) Vector {
	c := [3]expr.Expr{expr.Zero(), expr.Zero(), expr.Zero()}
	c[i] = expr.One()
	return vectorOf(f, c)
}

// Vec returns x f.x + y f.y + z f.z.
func (f *Frame) Vec(x, y, z expr.Expr) Vector { return VectorIn(f, x, y, z) }

func rotX(a expr.Expr) [3][3]expr.Expr {
	c, s := expr.Cos(a), expr.Sin(a)
	z, o := expr.Zero(), expr.One()
	return [3][3]expr.Expr{{o, z, z}, {z, c, expr.Neg(s)}, {z, s, c}}
}

func rotY(a expr.Expr) [3][3]expr.Expr {
	c, s := expr.Cos(a), expr.Sin(a)
	z, o := expr.Zero(), expr.One()
	return [3][3]expr.Expr{{c, z, s}, {z, o, z}, {expr.Neg(s), z, c}}
}

func rotZ(a expr.Expr) [3][3]expr.Expr {
	c, s := expr.Cos(a), expr.Sin(a)
	z, o := expr.Zero(), expr.One()
	return [3][3]expr.Expr{{c, expr.Neg(s), z}, {s, c, z}, {z, z, o}}
}

func rotAbout(axis byte, a expr.Expr) ([3][3]expr.Expr, bool) {
	switch axis {
	case 'X', '1':
		return rotX(a), true
	case 'Y', '2':
		return rotY(a), true
	case 'Z', '3':
		return rotZ(a), true
	}
	return [3][3]expr.Expr{}, false
}

// rodrigues returns the rotation by angle a about the unit axis k.
func rodrigues(k [3]expr.Expr, a expr.Expr) [3][3]expr.Expr {
	c, s := expr.Cos(a), expr.Sin(a)
	omc := expr.Sub(expr.One(), c)
	skew := [3][3]expr.Expr{
		{expr.Zero(), expr.Neg(k[2]), k[1]},
		{k[2], expr.Zero(), expr.Neg(k[0])},
		{expr.Neg(k[1]), k[0], expr.Zero()},
	}
	var out [3][3]expr.Expr
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			terms := []expr.Expr{expr.Mul(omc, k[i], k[j]), expr.Mul(s, skew[i][j])}
			if i == j {
				terms = append(terms, c)
			}
			out[i][j] = expr.Add(terms...)
		}
	}
	return out
}

func sequenceDCM(seq string, angles [3]expr.Expr, space bool) ([3][3]expr.Expr, error) {
	seq = strings.ToUpper(seq)
	if len(seq) != 3 || seq[0] == seq[1] || seq[1] == seq[2] {
		return [3][3]expr.Expr{}, ErrBadSequence
	}
	var rs [3][3][3]expr.Expr
	for i := 0; i < 3; i++ {
		r, ok := rotAbout(seq[i], angles[i])
		if !ok {
			return [3][3]expr.Expr{}, ErrBadSequence
		}
		rs[i] = r
	}
	if space {
		return mul3(mul3(rs[2], rs[1]), rs[0]), nil
	}
	return mul3(mul3(rs[0], rs[1]), rs[2]), nil
}
