package models

import (
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

// NewRotational models a planar pendulum: frame A turns about N.z by q1,
// the bob sits at l A.x and gravity pulls along N.x.
func NewRotational() (*Mechanism, error) {
	reg := expr.NewRegistry("rotational")
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
	a, err := graph.OrientAxis("A", n, n.Z(), q1)
	if err != nil {
		return nil, err
	}
	p, err := graph.Locate("P", graph.Origin(), a.X().Scale(l))
	if err != nil {
		return nil, err
	}

	asm := mechanics.NewAssembly(graph)
	if _, err := asm.Particle("bob", p, m); err != nil {
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
		Name:        "rotational",
		Description: "planar pendulum swinging about N.z",
		Registry:    reg,
		Graph:       graph,
		Assembly:    asm,
		Coordinates: qs,
		Speeds:      us,
		KinDiff:     kd,
		Outputs: []Output{
			{Name: "height", Expr: expr.Neg(expr.Mul(l, expr.Cos(q1)))},
		},
		Defaults: map[string]float64{
			"l": 1, "m": 1, "g": 9.81,
			"q1": 0.5, "u1": 0,
		},
		Smoke: []string{"q1", "u1", "g", "l"},
	}, nil
}
