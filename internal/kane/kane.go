package kane

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

// Method forms Kane's equations for one mechanism.
type Method struct {
	g     *mechanics.Graph
	qs    []*expr.Symbol
	us    []*expr.Symbol
	udots []*expr.Symbol
	kd    *KinDiff
	simp  *expr.Simplifier
	log   *slog.Logger
}

// New checks that the coordinates and speeds match the kinematic
// differential equations. The speeds are assumed independent.
func New(g *mechanics.Graph, qs, us []*expr.Symbol, kd *KinDiff) (*Method, error) {
	const stage = "kane"
	if len(us) == 0 {
		return nil, modeling(stage, ErrNoSpeeds)
	}
	if kd == nil {
		return nil, modeling(stage, fmt.Errorf("%w: no kinematic differential equations", ErrKinDiffCount))
	}
	if len(qs) != len(kd.qs) {
		return nil, modeling(stage, fmt.Errorf("%w: %d coordinates, %d kinematic differential equations", ErrKinDiffCount, len(qs), len(kd.qs)))
	}
	for i, q := range qs {
		if kd.qs[i] != q {
			return nil, modeling(stage, ErrCoordinates).WithSymbol(q.Name()).WithEquation(i)
		}
	}
	udots := make([]*expr.Symbol, len(us))
	for i, u := range us {
		ud, err := u.Dot()
		if err != nil {
			return nil, modeling(stage, fmt.Errorf("%w: %v", ErrNotDynamic, err)).WithSymbol(u.Name())
		}
		udots[i] = ud
	}
	return &Method{
		g:     g,
		qs:    qs,
		us:    us,
		udots: udots,
		kd:    kd,
		simp:  expr.NewSimplifier(),
		log:   slog.New(slog.DiscardHandler),
	}, nil
}

// WithLogger sets the logger used for stage diagnostics.
func (k *Method) WithLogger(l *slog.Logger) *Method {
	if l != nil {
		k.log = l
	}
	return k
}

type partial struct {
	v  mechanics.Vector
	vr []mechanics.Vector
}

// Equations derives the generalized active and inertia forces and the mass
// matrix and forcing vector they imply.
func (k *Method) Equations(bodies []mechanics.Body, loads []mechanics.Load) (*System, error) {
	if err := k.g.Validate(); err != nil {
		return nil, err
	}
	n := k.g.Base()
	kdd := k.kd.Solved()
	sub := func(e expr.Expr) expr.Expr { return k.simp.Simplify(expr.Subs(e, kdd)) }

	points := make(map[*mechanics.Point]*partial)
	frames := make(map[*mechanics.Frame]*partial)
	velocity := func(p *mechanics.Point) *partial {
		if pv, ok := points[p]; ok {
			return pv
		}
		pv := &partial{v: k.g.Vel(p).Map(sub)}
		for _, u := range k.us {
			pv.vr = append(pv.vr, pv.v.Diff(u, n))
		}
		points[p] = pv
		return pv
	}
	angular := func(f *mechanics.Frame) *partial {
		if pw, ok := frames[f]; ok {
			return pw
		}
		pw := &partial{v: k.g.AngVel(f).Map(sub)}
		for _, u := range k.us {
			pw.vr = append(pw.vr, pw.v.Diff(u, n))
		}
		frames[f] = pw
		return pw
	}

	nu := len(k.us)
	fr := make([]expr.Expr, nu)
	frstar := make([]expr.Expr, nu)
	for r := range fr {
		fr[r] = expr.Zero()
		frstar[r] = expr.Zero()
	}

	for _, l := range loads {
		var pv *partial
		if l.Kind == mechanics.Torque {
			pv = angular(l.Frame)
		} else {
			pv = velocity(l.Point)
		}
		vec := l.Vector.Map(sub)
		for r := range fr {
			fr[r] = expr.Add(fr[r], vec.Dot(pv.vr[r]))
		}
	}

	for _, b := range bodies {
		pv := velocity(b.MassCenter())
		acc := pv.v.Dt(n).Map(sub)
		for r := range frstar {
			frstar[r] = expr.Sub(frstar[r], expr.Mul(b.Mass(), acc.Dot(pv.vr[r])))
		}
		rb, ok := b.(*mechanics.RigidBody)
		if !ok {
			continue
		}
		pw := angular(rb.Frame())
		alpha := pw.v.Dt(n).Map(sub)
		in := rb.Inertia()
		h := in.Dot(alpha).Add(pw.v.Cross(in.Dot(pw.v)))
		for r := range frstar {
			frstar[r] = expr.Sub(frstar[r], h.Dot(pw.vr[r]))
		}
	}

	for r := range fr {
		fr[r] = k.simp.Simplify(fr[r])
		frstar[r] = k.simp.Simplify(frstar[r])
	}

	zero := make(map[*expr.Symbol]expr.Expr, nu)
	for _, ud := range k.udots {
		zero[ud] = expr.Zero()
	}
	mass := expr.NewMatrix(nu, nu)
	forcing := make([]expr.Expr, nu)
	for i := range frstar {
		for j, ud := range k.udots {
			mass.Set(i, j, k.simp.Simplify(expr.Neg(expr.Diff(frstar[i], ud))))
		}
		forcing[i] = k.simp.Simplify(expr.Add(fr[i], expr.Subs(frstar[i], zero)))
	}

	sys := &System{
		coords:      k.qs,
		speeds:      k.us,
		qdots:       k.kd.QDots(),
		udots:       k.udots,
		fr:          fr,
		frstar:      frstar,
		mass:        mass,
		forcing:     forcing,
		massFull:    expr.BlockDiag(k.kd.Matrix(), mass),
		forcingFull: append(k.kd.Forcing(), forcing...),
		kdd:         kdd,
	}
	k.log.Debug("kane equations",
		"coordinates", len(k.qs),
		"speeds", nu,
		"bodies", len(bodies),
		"loads", len(loads),
		"ops", sys.Ops())
	return sys, nil
}
