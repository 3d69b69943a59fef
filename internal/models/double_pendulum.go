package models

import (
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

const (
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultGravity = 9.81
)

// NewDoublePendulum models two point masses on massless links. Both angles
// are absolute, measured from N.x, which points down.
func NewDoublePendulum() (*Mechanism, error) {
	reg := expr.NewRegistry("double_pendulum")
	qs, err := reg.Coordinates("q1", "q2")
	if err != nil {
		return nil, err
	}
	us, err := reg.Speeds("u1", "u2")
	if err != nil {
		return nil, err
	}
	params, err := reg.Parameters("m1", "m2", "l1", "l2", "g")
	if err != nil {
		return nil, err
	}
	m1, m2, l1, l2, g := params[0], params[1], params[2], params[3], params[4]

	graph := mechanics.NewGraph(reg, "N", "O")
	n := graph.Base()
	a, err := graph.OrientAxis("A", n, n.Z(), qs[0])
	if err != nil {
		return nil, err
	}
	b, err := graph.OrientAxis("B", n, n.Z(), qs[1])
	if err != nil {
		return nil, err
	}
	p1, err := graph.Locate("P1", graph.Origin(), a.X().Scale(l1))
	if err != nil {
		return nil, err
	}
	p2, err := graph.Locate("P2", p1, b.X().Scale(l2))
	if err != nil {
		return nil, err
	}

	asm := mechanics.NewAssembly(graph)
	for _, bob := range []struct {
		name string
		p    *mechanics.Point
		m    *expr.Symbol
	}{{"bob1", p1, m1}, {"bob2", p2, m2}} {
		if _, err := asm.Particle(bob.name, bob.p, bob.m); err != nil {
			return nil, err
		}
		if err := asm.Force("gravity "+bob.name, bob.p, n.X().Scale(expr.Mul(bob.m, g))); err != nil {
			return nil, err
		}
	}

	kd, err := trivialKinDiff(qs, us)
	if err != nil {
		return nil, err
	}
	return &Mechanism{
		Name:        "double_pendulum",
		Description: "planar double pendulum of two particles",
		Registry:    reg,
		Graph:       graph,
		Assembly:    asm,
		Coordinates: qs,
		Speeds:      us,
		KinDiff:     kd,
		Outputs: []Output{
			{Name: "tip_x", Expr: graph.Pos(p2).Express(n)[0]},
			{Name: "tip_y", Expr: graph.Pos(p2).Express(n)[1]},
		},
		Defaults: map[string]float64{
			"m1": DefaultMass, "m2": DefaultMass,
			"l1": DefaultLength, "l2": DefaultLength,
			"g":  DefaultGravity,
			"q1": 0.6, "q2": -0.4, "u1": 0, "u2": 0,
		},
		Smoke: []string{"q1", "q2", "u1", "u2", "m1", "m2", "l1", "l2", "g"},
	}, nil
}
