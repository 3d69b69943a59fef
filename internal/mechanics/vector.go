package mechanics

import (
	"strings"

	"github.com/san-kum/kanedyn/internal/expr"
)

// Vector is a sum of component triples, each measured in its own frame.
// The zero value is the zero vector. Vectors are immutable.
type Vector struct {
	parts []part
}

type part struct {
	f *Frame
	c [3]expr.Expr
}

// VectorIn returns x f.x + y f.y + z f.z.
func VectorIn(f *Frame, x, y, z expr.Expr) Vector {
	v := Vector{parts: []part{{f: f, c: [3]expr.Expr{x, y, z}}}}
	return v.prune()
}

func vectorOf(f *Frame, c [3]expr.Expr) Vector { return VectorIn(f, c[0], c[1], c[2]) }

func (v Vector) prune() Vector {
	out := v.parts[:0:0]
	for _, p := range v.parts {
		if expr.IsZero(p.c[0]) && expr.IsZero(p.c[1]) && expr.IsZero(p.c[2]) {
			continue
		}
		out = append(out, p)
	}
	return Vector{parts: out}
}

// IsZero reports whether v has no non-zero components. It does not
// simplify.
func (v Vector) IsZero() bool { return len(v.parts) == 0 }

// Frames lists the frames v has components in.
func (v Vector) Frames() []*Frame {
	out := make([]*Frame, len(v.parts))
	for i, p := range v.parts {
		out[i] = p.f
	}
	return out
}

// Add returns v + o, merging components measured in the same frame.
func (v Vector) Add(o Vector) Vector {
	parts := make([]part, len(v.parts), len(v.parts)+len(o.parts))
	copy(parts, v.parts)
outer:
	for _, q := range o.parts {
		for i, p := range parts {
			if p.f == q.f {
				parts[i] = part{f: p.f, c: [3]expr.Expr{
					expr.Add(p.c[0], q.c[0]),
					expr.Add(p.c[1], q.c[1]),
					expr.Add(p.c[2], q.c[2]),
				}}
				continue outer
			}
		}
		parts = append(parts, q)
	}
	return Vector{parts: parts}.prune()
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector { return v.Add(o.Neg()) }

// Neg returns -v.
func (v Vector) Neg() Vector { return v.Scale(expr.Int(-1)) }

// Scale returns s v.
func (v Vector) Scale(s expr.Expr) Vector {
	return v.Map(func(e expr.Expr) expr.Expr { return expr.Mul(s, e) })
}

// Map applies fn to every component.
func (v Vector) Map(fn func(expr.Expr) expr.Expr) Vector {
	parts := make([]part, len(v.parts))
	for i, p := range v.parts {
		parts[i] = part{f: p.f, c: [3]expr.Expr{fn(p.c[0]), fn(p.c[1]), fn(p.c[2])}}
	}
	return Vector{parts: parts}.prune()
}

// Express returns the components of v in frame f.
func (v Vector) Express(f *Frame) [3]expr.Expr {
	var acc [3][]expr.Expr
	for _, p := range v.parts {
		c := p.c
		if p.f != f {
			c = mulVec3(f.g.DCM(f, p.f), p.c)
		}
		for i := 0; i < 3; i++ {
			acc[i] = append(acc[i], c[i])
		}
	}
	return [3]expr.Expr{expr.Add(acc[0]...), expr.Add(acc[1]...), expr.Add(acc[2]...)}
}

// In re-expresses v entirely in frame f.
func (v Vector) In(f *Frame) Vector { return vectorOf(f, v.Express(f)) }

// Dot returns the scalar product.
func (v Vector) Dot(o Vector) expr.Expr {
	var terms []expr.Expr
	for _, p := range v.parts {
		for _, q := range o.parts {
			c := q.c
			if q.f != p.f {
				c = mulVec3(p.f.g.DCM(p.f, q.f), q.c)
			}
			terms = append(terms, expr.Mul(p.c[0], c[0]), expr.Mul(p.c[1], c[1]), expr.Mul(p.c[2], c[2]))
		}
	}
	return expr.Add(terms...)
}

// Cross returns v × o. Each pair of parts is crossed in the frame of the
// left operand.
func (v Vector) Cross(o Vector) Vector {
	var out Vector
	for _, p := range v.parts {
		for _, q := range o.parts {
			c := q.c
			if q.f != p.f {
				c = mulVec3(p.f.g.DCM(p.f, q.f), q.c)
			}
			out = out.Add(vectorOf(p.f, cross3(p.c, c)))
		}
	}
	return out
}

// Diff returns the partial derivative of v with respect to s, taken in
// frame f. Parts whose orientation relative to f does not involve s are
// differentiated component-wise in their own frame.
func (v Vector) Diff(s *expr.Symbol, f *Frame) Vector {
	var out Vector
	for _, p := range v.parts {
		if p.f != f && dependsOn(f.g.DCM(f, p.f), s) {
			c := mulVec3(f.g.DCM(f, p.f), p.c)
			out = out.Add(VectorIn(f, expr.Diff(c[0], s), expr.Diff(c[1], s), expr.Diff(c[2], s)))
			continue
		}
		out = out.Add(VectorIn(p.f, expr.Diff(p.c[0], s), expr.Diff(p.c[1], s), expr.Diff(p.c[2], s)))
	}
	return out
}

// Dt returns the time derivative of v as seen from frame f:
// for each part measured in F, the component derivative plus ω_F/f × part.
func (v Vector) Dt(f *Frame) Vector {
	var out Vector
	for _, p := range v.parts {
		out = out.Add(VectorIn(p.f, expr.DiffT(p.c[0]), expr.DiffT(p.c[1]), expr.DiffT(p.c[2])))
		if p.f == f {
			continue
		}
		w := f.g.AngVelRel(p.f, f)
		out = out.Add(w.Cross(Vector{parts: []part{p}}))
	}
	return out
}

// Magnitude returns |v| as sqrt(v·v).
func (v Vector) Magnitude() expr.Expr { return expr.Sqrt(v.Dot(v)) }

// Format prints v as a sum of scaled basis vectors.
func (v Vector) Format(fm expr.Format) string {
	if v.IsZero() {
		return "0"
	}
	var terms []string
	for _, p := range v.parts {
		for i, c := range p.c {
			if expr.IsZero(c) {
				continue
			}
			terms = append(terms, "("+fm.Expr(c)+")*"+p.f.name+"."+axisNames[i])
		}
	}
	return strings.Join(terms, " + ")
}

func (v Vector) String() string { return v.Format(expr.Format{Notation: expr.Mechanics}) }

var axisNames = [3]string{"x", "y", "z"}

func dependsOn(m [3][3]expr.Expr, s *expr.Symbol) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if expr.Contains(m[i][j], s) {
				return true
			}
		}
	}
	return false
}

func cross3(a, b [3]expr.Expr) [3]expr.Expr {
	return [3]expr.Expr{
		expr.Sub(expr.Mul(a[1], b[2]), expr.Mul(a[2], b[1])),
		expr.Sub(expr.Mul(a[2], b[0]), expr.Mul(a[0], b[2])),
		expr.Sub(expr.Mul(a[0], b[1]), expr.Mul(a[1], b[0])),
	}
}

func mulVec3(m [3][3]expr.Expr, v [3]expr.Expr) [3]expr.Expr {
	var out [3]expr.Expr
	for i := 0; i < 3; i++ {
		out[i] = expr.Add(expr.Mul(m[i][0], v[0]), expr.Mul(m[i][1], v[1]), expr.Mul(m[i][2], v[2]))
	}
	return out
}

func mul3(a, b [3][3]expr.Expr) [3][3]expr.Expr {
	var out [3][3]expr.Expr
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = expr.Add(expr.Mul(a[i][0], b[0][j]), expr.Mul(a[i][1], b[1][j]), expr.Mul(a[i][2], b[2][j]))
		}
	}
	return out
}

func transpose3(a [3][3]expr.Expr) [3][3]expr.Expr {
	var out [3][3]expr.Expr
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[j][i]
		}
	}
	return out
}

func identity3() [3][3]expr.Expr {
	var out [3][3]expr.Expr
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				out[i][j] = expr.One()
			} else {
				out[i][j] = expr.Zero()
			}
		}
	}
	return out
}
