package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/kanedyn/internal/dynamo"
)

// Pendulum is a point mass on a massless rod swinging in a vertical plane.
// State is [theta, omega] with theta measured from the downward vertical,
// matching the rotational mechanism's [q1, u1].
type Pendulum struct {
	Mass    float64
	Length  float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{Mass: 1, Length: 1, Gravity: 9.81}
}

func (p *Pendulum) StateDim() int { return 2 }

// Derive returns [omega, -g sin(theta)/l]. The mass cancels.
func (p *Pendulum) Derive(x dynamo.State) dynamo.State {
	return dynamo.State{x[1], -p.Gravity / p.Length * math.Sin(x[0])}
}

// Energy is kinetic plus potential energy, zero at rest hanging down.
func (p *Pendulum) Energy(x dynamo.State) float64 {
	v := p.Length * x[1]
	h := p.Length * (1 - math.Cos(x[0]))
	return p.Mass * (0.5*v*v + p.Gravity*h)
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{"m": p.Mass, "l": p.Length, "g": p.Gravity}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "m":
		p.Mass = value
	case "l":
		p.Length = value
	case "g":
		p.Gravity = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}
