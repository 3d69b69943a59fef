package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

var ErrUnknownSymbol = errors.New("models: unknown symbol")

// Output is a named configuration quantity reported alongside the
// equations of motion, such as an actuator length.
type Output struct {
	Name string
	Expr expr.Expr
}

// Mechanism is a hand-modeled description ready for Kane's method.
type Mechanism struct {
	Name        string
	Description string

	Registry    *expr.Registry
	Graph       *mechanics.Graph
	Assembly    *mechanics.Assembly
	Coordinates []*expr.Symbol
	Speeds      []*expr.Symbol
	KinDiff     []expr.Expr
	Outputs     []Output

	// Defaults binds parameters and states by name for numeric work.
	Defaults map[string]float64
	// Smoke lists the arguments of the representative evaluation.
	Smoke []string
}

// Parameters returns the constant symbols, sorted by name.
func (m *Mechanism) Parameters() []*expr.Symbol {
	var out []*expr.Symbol
	for _, s := range m.Registry.Symbols() {
		if s.Kind() == expr.Parameter {
			out = append(out, s)
		}
	}
	expr.SortSymbols(out)
	return out
}

// States returns [q; u].
func (m *Mechanism) States() []*expr.Symbol {
	out := append([]*expr.Symbol(nil), m.Coordinates...)
	return append(out, m.Speeds...)
}

// Symbols resolves names to symbols of the mechanism.
func (m *Mechanism) Symbols(names ...string) ([]*expr.Symbol, error) {
	out := make([]*expr.Symbol, len(names))
	for i, n := range names {
		s, ok := m.Registry.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownSymbol, n, m.Name)
		}
		out[i] = s
	}
	return out, nil
}

// Bind resolves name/value pairs, starting from Defaults and applying
// overrides on top.
func (m *Mechanism) Bind(overrides map[string]float64) (map[*expr.Symbol]float64, error) {
	vals := make(map[string]float64, len(m.Defaults)+len(overrides))
	for k, v := range m.Defaults {
		vals[k] = v
	}
	for k, v := range overrides {
		vals[k] = v
	}
	names := make([]string, 0, len(vals))
	for k := range vals {
		names = append(names, k)
	}
	sort.Strings(names)
	syms, err := m.Symbols(names...)
	if err != nil {
		return nil, err
	}
	env := make(map[*expr.Symbol]float64, len(names))
	for i, s := range syms {
		env[s] = vals[names[i]]
	}
	return env, nil
}

func dotAll(syms []*expr.Symbol) ([]*expr.Symbol, error) {
	out := make([]*expr.Symbol, len(syms))
	for i, s := range syms {
		d, err := s.Dot()
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// trivialKinDiff returns q̇ᵢ - uᵢ for each pair.
func trivialKinDiff(qs, us []*expr.Symbol) ([]expr.Expr, error) {
	qd, err := dotAll(qs)
	if err != nil {
		return nil, err
	}
	eqs := make([]expr.Expr, len(qs))
	for i := range qs {
		eqs[i] = expr.Sub(qd[i], us[i])
	}
	return eqs, nil
}
