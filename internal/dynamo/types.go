package dynamo

import (
	"fmt"
	"math"
)

// State is a numeric state vector x = [q; u].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// MaxAbsDiff returns the largest componentwise difference.
func (s State) MaxAbsDiff(other State) (float64, error) {
	if len(s) != len(other) {
		return math.Inf(1), fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(s), len(other))
	}
	worst := 0.0
	for i := range s {
		if d := math.Abs(s[i] - other[i]); d > worst {
			worst = d
		}
	}
	return worst, nil
}

// System is a first-order model ẋ = f(x). Closed-form reference models
// implement it so derived equations can be checked against them.
type System interface {
	Derive(x State) State
	StateDim() int
}

// Configurable exposes named physical parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Hamiltonian is implemented by conservative reference models.
type Hamiltonian interface {
	Energy(x State) float64
}

// Validate checks x against sys.
func Validate(sys System, x State) error {
	if len(x) != sys.StateDim() {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x), sys.StateDim())
	}
	if !x.IsValid() {
		return ErrInvalidState
	}
	return nil
}
