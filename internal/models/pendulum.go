package models

import (
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

// NewPendulum models a mass at P = O + l N.x driven along N.x by a linear
// actuator: the velocity of P is prescribed as u1 N.x and gravity acts
// along N.x. The reduced equations are q1' = u1, u1' = g.
func NewPendulum() (*Mechanism, error) {
	reg := expr.NewRegistry("pendulum")
	q1, err := reg.Coordinate("q1")
	if err != nil {
		return nil, err
	}
	u1, err := reg.Speed("u1")
	if err != nil {
		return nil, err
	}
	params, err := reg.Parameters("l", "m", "g")
	if err != nil {
		return nil, err
	}
	l, m, g := params[0], params[1], params[2]

	graph := mechanics.NewGraph(reg, "N", "O")
	n := graph.Base()
	p, err := graph.Locate("P", graph.Origin(), n.X().Scale(l))
	if err != nil {
		return nil, err
	}
	if err := graph.SetVel(p, n, n.X().Scale(u1)); err != nil {
		return nil, err
	}

	asm := mechanics.NewAssembly(graph)
	if _, err := asm.Particle("ParP", p, m); err != nil {
		return nil, err
	}
	if err := asm.Force("gravity", p, n.X().Scale(expr.Mul(m, g))); err != nil {
		return nil, err
	}

	qs, us := []*expr.Symbol{q1}, []*expr.Symbol{u1}
	kd, err := trivialKinDiff(qs, us)
	if err != nil {
		return nil, err
	}
	return &Mechanism{
		Name:        "pendulum",
		Description: "mass on a linear actuator, velocity prescribed along N.x",
		Registry:    reg,
		Graph:       graph,
		Assembly:    asm,
		Coordinates: qs,
		Speeds:      us,
		KinDiff:     kd,
		Defaults: map[string]float64{
			"l": 1, "m": 1, "g": 9.81,
			"q1": 0, "u1": 1,
		},
		Smoke: []string{"u1", "g"},
	}, nil
}
