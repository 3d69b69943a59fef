package models

import (
	"fmt"
	"math"

	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

const platformLegs = 6

// NewPlatform models a Gough-Stewart platform: a rigid plate B carried by
// six prismatic legs. q1..q3 locate the plate centre in N and q4..q6 are
// body-fixed XYZ angles; u1..u3 are the N components of its velocity and
// u4..u6 the B components of its angular velocity. Leg i runs from
// (ai, bi, 0) in N to (xi, yi, 0) in B and pushes with force Fi along
// itself. Six legs fix all six degrees of freedom, so no configuration
// constraints are needed.
func NewPlatform() (*Mechanism, error) {
	reg := expr.NewRegistry("platform")
	qs, err := reg.Coordinates("q1", "q2", "q3", "q4", "q5", "q6")
	if err != nil {
		return nil, err
	}
	us, err := reg.Speeds("u1", "u2", "u3", "u4", "u5", "u6")
	if err != nil {
		return nil, err
	}
	params, err := reg.Parameters("m", "g", "Ixx", "Iyy", "Izz")
	if err != nil {
		return nil, err
	}
	m, g, ixx, iyy, izz := params[0], params[1], params[2], params[3], params[4]

	graph := mechanics.NewGraph(reg, "N", "O")
	n := graph.Base()
	b, err := graph.OrientBody("B", n, "XYZ", qs[3], qs[4], qs[5])
	if err != nil {
		return nil, err
	}
	centre := n.X().Scale(qs[0]).Add(n.Y().Scale(qs[1])).Add(n.Z().Scale(qs[2]))
	p, err := graph.Locate("P", graph.Origin(), centre)
	if err != nil {
		return nil, err
	}

	asm := mechanics.NewAssembly(graph)
	in := mechanics.InertiaOf(b, ixx, iyy, izz, expr.Zero(), expr.Zero(), expr.Zero())
	if _, err := asm.RigidBody("platform", b, p, m, in); err != nil {
		return nil, err
	}
	if err := asm.Force("gravity", p, n.Z().Scale(expr.Neg(expr.Mul(m, g)))); err != nil {
		return nil, err
	}

	defaults := map[string]float64{
		"m": 10, "g": 9.81, "Ixx": 0.5, "Iyy": 0.5, "Izz": 1,
		"q3": 1,
	}
	var outputs []Output
	for i := 1; i <= platformLegs; i++ {
		leg, err := reg.Parameters(
			fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i),
			fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i),
			fmt.Sprintf("F%d", i),
		)
		if err != nil {
			return nil, err
		}
		ai, bi, xi, yi, fi := leg[0], leg[1], leg[2], leg[3], leg[4]
		base, err := graph.Locate(fmt.Sprintf("A%d", i), graph.Origin(), n.X().Scale(ai).Add(n.Y().Scale(bi)))
		if err != nil {
			return nil, err
		}
		top, err := graph.Locate(fmt.Sprintf("T%d", i), p, b.X().Scale(xi).Add(b.Y().Scale(yi)))
		if err != nil {
			return nil, err
		}
		d := graph.PosFrom(top, base)
		length := d.Magnitude()
		if err := asm.Force(fmt.Sprintf("leg%d", i), top, d.Scale(expr.Div(fi, length))); err != nil {
			return nil, err
		}
		outputs = append(outputs, Output{Name: fmt.Sprintf("L%d", i), Expr: length})

		// base anchors on a unit circle, plate anchors on a half-size circle
		// rotated by 30 degrees
		theta := float64(i-1) * math.Pi / 3
		defaults[ai.Name()] = math.Cos(theta)
		defaults[bi.Name()] = math.Sin(theta)
		defaults[xi.Name()] = 0.5 * math.Cos(theta+math.Pi/6)
		defaults[yi.Name()] = 0.5 * math.Sin(theta+math.Pi/6)
		defaults[fi.Name()] = 0
	}

	kd, err := platformKinDiff(graph, b, qs, us)
	if err != nil {
		return nil, err
	}
	for _, s := range append(append([]*expr.Symbol(nil), qs...), us...) {
		if _, ok := defaults[s.Name()]; !ok {
			defaults[s.Name()] = 0
		}
	}
	return &Mechanism{
		Name:        "platform",
		Description: "6-DOF Gough-Stewart platform driven by six leg forces",
		Registry:    reg,
		Graph:       graph,
		Assembly:    asm,
		Coordinates: qs,
		Speeds:      us,
		KinDiff:     kd,
		Outputs:     outputs,
		Defaults:    defaults,
		Smoke:       []string{"u1", "g"},
	}, nil
}

// platformKinDiff ties q̇1..q̇3 to u1..u3 directly and the Euler angle
// rates to the body-frame angular velocity components u4..u6.
func platformKinDiff(graph *mechanics.Graph, b *mechanics.Frame, qs, us []*expr.Symbol) ([]expr.Expr, error) {
	eqs, err := trivialKinDiff(qs[:3], us[:3])
	if err != nil {
		return nil, err
	}
	w := graph.AngVel(b).Express(b)
	for i := 0; i < 3; i++ {
		eqs = append(eqs, expr.Sub(w[i], us[3+i]))
	}
	return eqs, nil
}
