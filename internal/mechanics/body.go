package mechanics

import (
	"github.com/san-kum/kanedyn/internal/expr"
)

// Inertia is a symmetric dyadic given by its component matrix in a frame.
type Inertia struct {
	frame *Frame
	m     [3][3]expr.Expr
}

// InertiaOf builds an inertia dyadic from its six independent components
// in frame f.
func InertiaOf(f *Frame, ixx, iyy, izz, ixy, iyz, izx expr.Expr) Inertia {
	return Inertia{frame: f, m: [3][3]expr.Expr{
		{ixx, ixy, izx},
		{ixy, iyy, iyz},
		{izx, iyz, izz},
	}}
}

// Frame returns the frame the components are measured in.
func (in Inertia) Frame() *Frame { return in.frame }

// Dot returns I·v, expressed in the inertia frame.
func (in Inertia) Dot(v Vector) Vector {
	return vectorOf(in.frame, mulVec3(in.m, v.Express(in.frame)))
}

// Body is a mass-carrying element of the mechanism.
type Body interface {
	Name() string
	Mass() expr.Expr
	MassCenter() *Point
}

// Particle is a point mass.
type Particle struct {
	name  string
	point *Point
	mass  expr.Expr
}

func (p *Particle) Name() string       { return p.name }
func (p *Particle) Mass() expr.Expr    { return p.mass }
func (p *Particle) MassCenter() *Point { return p.point }

// RigidBody has a body frame, a mass centre and a central inertia.
type RigidBody struct {
	name    string
	frame   *Frame
	center  *Point
	mass    expr.Expr
	inertia Inertia
}

func (b *RigidBody) Name() string       { return b.name }
func (b *RigidBody) Mass() expr.Expr    { return b.mass }
func (b *RigidBody) MassCenter() *Point { return b.center }
func (b *RigidBody) Frame() *Frame      { return b.frame }
func (b *RigidBody) Inertia() Inertia   { return b.inertia }

// LoadKind distinguishes forces from torques.
type LoadKind int

const (
	Force LoadKind = iota
	Torque
)

func (k LoadKind) String() string {
	if k == Torque {
		return "torque"
	}
	return "force"
}

// Load is a force applied at a point or a torque applied to a frame. Loads
// are stored unresolved; the solver projects them on partial velocities.
type Load struct {
	Kind   LoadKind
	Point  *Point
	Frame  *Frame
	Vector Vector
	Label  string
}

// Assembly collects the bodies and loads attached to a graph.
type Assembly struct {
	g      *Graph
	bodies []Body
	loads  []Load
	owner  map[*Point]string
	names  map[string]bool
}

// NewAssembly starts an empty assembly on g.
func NewAssembly(g *Graph) *Assembly {
	return &Assembly{g: g, owner: make(map[*Point]string), names: make(map[string]bool)}
}

func (a *Assembly) Graph() *Graph  { return a.g }
func (a *Assembly) Bodies() []Body { return append([]Body(nil), a.bodies...) }
func (a *Assembly) Loads() []Load  { return append([]Load(nil), a.loads...) }

func (a *Assembly) claim(stage, name string, p *Point) error {
	if a.names[name] {
		return constructionf(stage, ErrDuplicateBody, "%s", name)
	}
	if !a.g.OwnsPoint(p) {
		return constructionf(stage, ErrUndeclared, "point %v of body %s", p, name)
	}
	if other, ok := a.owner[p]; ok {
		return constructionf(stage, ErrSharedPoint, "%s used by %s and %s", p.name, other, name)
	}
	a.owner[p] = name
	a.names[name] = true
	return nil
}

// Particle attaches a point mass.
func (a *Assembly) Particle(name string, p *Point, mass expr.Expr) (*Particle, error) {
	const stage = "particle"
	if expr.IsZero(mass) {
		return nil, constructionf(stage, ErrNoMass, "%s", name)
	}
	if err := a.claim(stage, name, p); err != nil {
		return nil, err
	}
	b := &Particle{name: name, point: p, mass: mass}
	a.bodies = append(a.bodies, b)
	return b, nil
}

// RigidBody attaches a rigid body with frame f and mass centre c. The
// inertia must be about the mass centre and measured in a frame of the
// graph.
func (a *Assembly) RigidBody(name string, f *Frame, c *Point, mass expr.Expr, in Inertia) (*RigidBody, error) {
	const stage = "rigid body"
	if !a.g.OwnsFrame(f) {
		return nil, constructionf(stage, ErrUndeclared, "frame %v of body %s", f, name)
	}
	if !a.g.OwnsFrame(in.frame) {
		return nil, constructionf(stage, ErrUndeclared, "inertia frame of body %s", name)
	}
	if expr.IsZero(mass) {
		return nil, constructionf(stage, ErrNoMass, "%s", name)
	}
	if err := a.claim(stage, name, c); err != nil {
		return nil, err
	}
	b := &RigidBody{name: name, frame: f, center: c, mass: mass, inertia: in}
	a.bodies = append(a.bodies, b)
	return b, nil
}

// Force applies v at point p. Several loads may share a point.
func (a *Assembly) Force(label string, p *Point, v Vector) error {
	const stage = "force"
	if !a.g.OwnsPoint(p) {
		return constructionf(stage, ErrUndeclared, "point %v of force %s", p, label)
	}
	if err := a.g.checkVector(stage, v); err != nil {
		return err
	}
	a.loads = append(a.loads, Load{Kind: Force, Point: p, Vector: v, Label: label})
	return nil
}

// Torque applies v to frame f.
func (a *Assembly) Torque(label string, f *Frame, v Vector) error {
	const stage = "torque"
	if !a.g.OwnsFrame(f) {
		return constructionf(stage, ErrUndeclared, "frame %v of torque %s", f, label)
	}
	if err := a.g.checkVector(stage, v); err != nil {
		return err
	}
	a.loads = append(a.loads, Load{Kind: Torque, Frame: f, Vector: v, Label: label})
	return nil
}
