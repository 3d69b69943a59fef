package mechanics

import (
	"fmt"

	errtree "github.com/Konstantin8105/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/san-kum/kanedyn/internal/expr"
)

// Graph holds the frame tree and the point tree of one mechanism. Derived
// kinematics (direction cosines, angular velocities, point velocities) are
// computed on demand and cached; setting an explicit velocity clears the
// caches.
type Graph struct {
	reg    *expr.Registry
	frames []*Frame
	points []*Point
	fIndex map[string]*Frame
	pIndex map[string]*Point

	simp     *expr.Simplifier
	dcmCache map[[2]*Frame][3][3]expr.Expr
	angCache map[*Frame]Vector
	velCache map[*Point]Vector
}

// NewGraph creates a graph with a base frame and an origin point, both at
// rest.
func NewGraph(reg *expr.Registry, baseFrame, basePoint string) *Graph {
	g := &Graph{
		reg:      reg,
		fIndex:   make(map[string]*Frame),
		pIndex:   make(map[string]*Point),
		simp:     expr.NewSimplifier(),
		dcmCache: make(map[[2]*Frame][3][3]expr.Expr),
		angCache: make(map[*Frame]Vector),
		velCache: make(map[*Point]Vector),
	}
	base := &Frame{name: baseFrame, g: g, dcm: identity3()}
	g.frames = append(g.frames, base)
	g.fIndex[baseFrame] = base
	origin := &Point{name: basePoint, g: g}
	g.points = append(g.points, origin)
	g.pIndex[basePoint] = origin
	return g
}

func (g *Graph) Registry() *expr.Registry { return g.reg }

// Base returns the inertial base frame.
func (g *Graph) Base() *Frame { return g.frames[0] }

// Origin returns the fixed base point.
func (g *Graph) Origin() *Point { return g.points[0] }

// Frame looks up a frame by name.
func (g *Graph) Frame(name string) (*Frame, bool) {
	f, ok := g.fIndex[name]
	return f, ok
}

// Point looks up a point by name.
func (g *Graph) Point(name string) (*Point, bool) {
	p, ok := g.pIndex[name]
	return p, ok
}

// Frames returns all frames in declaration order.
func (g *Graph) Frames() []*Frame { return append([]*Frame(nil), g.frames...) }

// Points returns all points in declaration order.
func (g *Graph) Points() []*Point { return append([]*Point(nil), g.points...) }

// OwnsFrame reports whether f was declared in g.
func (g *Graph) OwnsFrame(f *Frame) bool { return f != nil && f.g == g && g.fIndex[f.name] == f }

// OwnsPoint reports whether p was declared in g.
func (g *Graph) OwnsPoint(p *Point) bool { return p != nil && p.g == g && g.pIndex[p.name] == p }

func (g *Graph) checkVector(stage string, v Vector) error {
	for _, f := range v.Frames() {
		if !g.OwnsFrame(f) {
			return constructionf(stage, ErrUndeclared, "vector uses frame %s", f.name)
		}
	}
	return nil
}

func (g *Graph) addFrame(stage, name string, parent *Frame, dcm [3][3]expr.Expr, rel *Vector) (*Frame, error) {
	if _, ok := g.fIndex[name]; ok {
		return nil, constructionf(stage, ErrFrameRedefined, "%s", name)
	}
	if !g.OwnsFrame(parent) {
		return nil, constructionf(stage, ErrUndeclared, "parent of frame %s", name)
	}
	f := &Frame{name: name, g: g, parent: parent, idx: len(g.frames), dcm: dcm, rel: rel}
	g.frames = append(g.frames, f)
	g.fIndex[name] = f
	return f, nil
}

// OrientAxis declares frame name rotated from parent by angle about a unit
// axis fixed in parent.
func (g *Graph) OrientAxis(name string, parent *Frame, axis Vector, angle expr.Expr) (*Frame, error) {
	const stage = "orient axis"
	if !g.OwnsFrame(parent) {
		return nil, constructionf(stage, ErrUndeclared, "parent of frame %s", name)
	}
	if err := g.checkVector(stage, axis); err != nil {
		return nil, err
	}
	k := axis.Express(parent)
	norm := expr.Add(expr.Square(k[0]), expr.Square(k[1]), expr.Square(k[2]))
	if !g.simp.IsZero(expr.Sub(norm, expr.One())) {
		return nil, constructionf(stage, ErrAxisNotUnit, "frame %s", name)
	}
	rel := vectorOf(parent, k).Scale(expr.DiffT(angle))
	return g.addFrame(stage, name, parent, rodrigues(k, angle), &rel)
}

// OrientDCM declares frame name with an explicit direction cosine matrix:
// dcm[i][j] is the projection of child basis vector j on parent basis
// vector i.
func (g *Graph) OrientDCM(name string, parent *Frame, dcm [3][3]expr.Expr) (*Frame, error) {
	return g.addFrame("orient dcm", name, parent, dcm, nil)
}

// OrientBody declares frame name by three successive rotations about the
// axes of the rotating frame, e.g. "XYZ" or "ZXZ".
func (g *Graph) OrientBody(name string, parent *Frame, seq string, a1, a2, a3 expr.Expr) (*Frame, error) {
	dcm, err := sequenceDCM(seq, [3]expr.Expr{a1, a2, a3}, false)
	if err != nil {
		return nil, constructionf("orient body", err, "%q", seq)
	}
	return g.addFrame("orient body", name, parent, dcm, nil)
}

// OrientSpace declares frame name by three successive rotations about the
// parent's fixed axes.
func (g *Graph) OrientSpace(name string, parent *Frame, seq string, a1, a2, a3 expr.Expr) (*Frame, error) {
	dcm, err := sequenceDCM(seq, [3]expr.Expr{a1, a2, a3}, true)
	if err != nil {
		return nil, constructionf("orient space", err, "%q", seq)
	}
	return g.addFrame("orient space", name, parent, dcm, nil)
}

// Locate declares point name at offset from parent.
func (g *Graph) Locate(name string, parent *Point, offset Vector) (*Point, error) {
	const stage = "locate"
	if _, ok := g.pIndex[name]; ok {
		return nil, constructionf(stage, ErrPointRedefined, "%s", name)
	}
	if !g.OwnsPoint(parent) {
		return nil, constructionf(stage, ErrUndeclared, "parent of point %s", name)
	}
	if err := g.checkVector(stage, offset); err != nil {
		return nil, err
	}
	p := &Point{name: name, g: g, parent: parent, idx: len(g.points), offset: offset}
	g.points = append(g.points, p)
	g.pIndex[name] = p
	return p, nil
}

// SetVel prescribes the velocity of p in frame f, which must be the base
// frame. Consistency with the position chain is not checked.
func (g *Graph) SetVel(p *Point, f *Frame, v Vector) error {
	const stage = "set velocity"
	if !g.OwnsPoint(p) {
		return constructionf(stage, ErrUndeclared, "point %v", p)
	}
	if f != g.Base() {
		return constructionf(stage, ErrNotBaseFrame, "frame %v", f)
	}
	if err := g.checkVector(stage, v); err != nil {
		return err
	}
	p.vel = &v
	g.invalidate()
	return nil
}

// SetAngVel prescribes the angular velocity of f in the base frame.
func (g *Graph) SetAngVel(f *Frame, w Vector) error {
	const stage = "set angular velocity"
	if !g.OwnsFrame(f) {
		return constructionf(stage, ErrUndeclared, "frame %v", f)
	}
	if err := g.checkVector(stage, w); err != nil {
		return err
	}
	f.abs = &w
	g.invalidate()
	return nil
}

func (g *Graph) invalidate() {
	g.angCache = make(map[*Frame]Vector)
	g.velCache = make(map[*Point]Vector)
}

// DCM returns the matrix mapping components in b to components in a.
func (g *Graph) DCM(a, b *Frame) [3][3]expr.Expr {
	if a == b {
		return identity3()
	}
	key := [2]*Frame{a, b}
	if m, ok := g.dcmCache[key]; ok {
		return m
	}
	c := commonAncestor(a, b)
	m := mul3(transpose3(pathDCM(c, a)), pathDCM(c, b))
	g.dcmCache[key] = m
	return m
}

func depth(f *Frame) int {
	d := 0
	for f.parent != nil {
		f = f.parent
		d++
	}
	return d
}

func commonAncestor(a, b *Frame) *Frame {
	da, db := depth(a), depth(b)
	for da > db {
		a = a.parent
		da--
	}
	for db > da {
		b = b.parent
		db--
	}
	for a != b {
		a, b = a.parent, b.parent
	}
	return a
}

// pathDCM maps components in f to components in its ancestor anc.
func pathDCM(anc, f *Frame) [3][3]expr.Expr {
	var chain []*Frame
	for cur := f; cur != anc; cur = cur.parent {
		chain = append(chain, cur)
	}
	m := identity3()
	for i := len(chain) - 1; i >= 0; i-- {
		m = mul3(m, chain[i].dcm)
	}
	return m
}

// relAngVel returns the angular velocity of f relative to its parent,
// deriving it from the skew-symmetric matrix Rᵀ dR/dt when no closed form
// was recorded.
func (g *Graph) relAngVel(f *Frame) Vector {
	if f.rel != nil {
		return *f.rel
	}
	r := f.dcm
	var rdot [3][3]expr.Expr
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rdot[i][j] = expr.DiffT(r[i][j])
		}
	}
	s := mul3(transpose3(r), rdot)
	w := vectorOf(f, [3]expr.Expr{
		g.simp.Simplify(s[2][1]),
		g.simp.Simplify(s[0][2]),
		g.simp.Simplify(s[1][0]),
	})
	f.rel = &w
	return w
}

// AngVel returns the angular velocity of f in the base frame.
func (g *Graph) AngVel(f *Frame) Vector {
	if f.abs != nil {
		return *f.abs
	}
	if f.parent == nil {
		return Vector{}
	}
	if w, ok := g.angCache[f]; ok {
		return w
	}
	w := g.AngVel(f.parent).Add(g.relAngVel(f))
	g.angCache[f] = w
	return w
}

// AngVelRel returns the angular velocity of f relative to ref.
func (g *Graph) AngVelRel(f, ref *Frame) Vector {
	return g.AngVel(f).Sub(g.AngVel(ref))
}

// AngAcc returns the angular acceleration of f in the base frame.
func (g *Graph) AngAcc(f *Frame) Vector {
	return g.AngVel(f).Dt(g.Base())
}

// Pos returns the position of p relative to the origin.
func (g *Graph) Pos(p *Point) Vector {
	var v Vector
	for cur := p; cur.parent != nil; cur = cur.parent {
		v = v.Add(cur.offset)
	}
	return v
}

// PosFrom returns the position of p relative to o.
func (g *Graph) PosFrom(p, o *Point) Vector {
	return g.Pos(p).Sub(g.Pos(o))
}

// Vel returns the velocity of p in the base frame.
func (g *Graph) Vel(p *Point) Vector {
	if p.vel != nil {
		return *p.vel
	}
	if p.parent == nil {
		return Vector{}
	}
	if v, ok := g.velCache[p]; ok {
		return v
	}
	v := g.Vel(p.parent).Add(p.offset.Dt(g.Base()))
	g.velCache[p] = v
	return v
}

// Acc returns the acceleration of p in the base frame.
func (g *Graph) Acc(p *Point) Vector {
	return g.Vel(p).Dt(g.Base())
}

// Validate checks that both trees are connected and acyclic and that every
// stored vector refers to frames of this graph. All problems are reported
// together.
func (g *Graph) Validate() error {
	et := errtree.New("kinematic graph " + g.reg.Name())

	checkTree(et, "frame", len(g.frames), func(i int) int {
		if p := g.frames[i].parent; p != nil {
			return p.idx
		}
		return -1
	}, func(i int) string { return g.frames[i].name })

	checkTree(et, "point", len(g.points), func(i int) int {
		if p := g.points[i].parent; p != nil {
			return p.idx
		}
		return -1
	}, func(i int) string { return g.points[i].name })

	for _, f := range g.frames {
		if f.abs != nil {
			if err := g.checkVector("validate", *f.abs); err != nil {
				et.Add(fmt.Errorf("angular velocity of %s: %w", f.name, err))
			}
		}
	}
	for _, p := range g.points {
		if err := g.checkVector("validate", p.offset); err != nil {
			et.Add(fmt.Errorf("offset of %s: %w", p.name, err))
		}
		if p.vel != nil {
			if err := g.checkVector("validate", *p.vel); err != nil {
				et.Add(fmt.Errorf("velocity of %s: %w", p.name, err))
			}
		}
	}
	if et.IsError() {
		return construction("validate", fmt.Errorf("%w\n%v", ErrInvalidGraph, et))
	}
	return nil
}

func checkTree(et *errtree.Tree, kind string, n int, parentOf func(int) int, nameOf func(int) string) {
	dg := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		dg.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i < n; i++ {
		p := parentOf(i)
		if i == 0 {
			if p >= 0 {
				et.Add(fmt.Errorf("%s root %s has a parent", kind, nameOf(i)))
			}
			continue
		}
		if p < 0 {
			et.Add(fmt.Errorf("%s %s has no parent", kind, nameOf(i)))
			continue
		}
		dg.SetEdge(dg.NewEdge(simple.Node(int64(p)), simple.Node(int64(i))))
	}
	if _, err := topo.Sort(dg); err != nil {
		et.Add(fmt.Errorf("%s tree has a cycle: %v", kind, err))
	}
	root := simple.Node(0)
	for i := 1; i < n; i++ {
		if !topo.PathExistsIn(dg, root, simple.Node(int64(i))) {
			et.Add(fmt.Errorf("%s %s is not connected to %s", kind, nameOf(i), nameOf(0)))
		}
	}
}
