package expr

import (
	"fmt"
	"strings"
)

// Kind classifies a symbol.
type Kind uint8

const (
	// Parameter is a constant of the model.
	Parameter Kind = iota
	// Coordinate is a generalized coordinate, a function of time.
	Coordinate
	// Speed is a generalized speed, a function of time.
	Speed
)

func (k Kind) String() string {
	switch k {
	case Parameter:
		return "parameter"
	case Coordinate:
		return "coordinate"
	case Speed:
		return "speed"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Symbol is a named unknown issued by a Registry. Identity is the handle:
// two symbols with the same name from different registries are distinct.
//
// A derivative symbol has Order > 0 and refers back to its base symbol.
type Symbol struct {
	id    uint64
	name  string
	kind  Kind
	order int
	root  *Symbol
	reg   *Registry
	dot   *Symbol
	h     uint64
}

// Name returns the declared name of the base symbol.
func (s *Symbol) Name() string { return s.base().name }

// ID returns the process-wide identity of the handle.
func (s *Symbol) ID() uint64 { return s.id }

// Kind returns the symbol kind.
func (s *Symbol) Kind() Kind { return s.kind }

// Order returns the time-derivative order; zero for base symbols.
func (s *Symbol) Order() int { return s.order }

// Base returns the underived symbol.
func (s *Symbol) Base() *Symbol { return s.base() }

// Registry returns the issuing registry.
func (s *Symbol) Registry() *Registry { return s.reg }

// IsDynamic reports whether the symbol varies with time.
func (s *Symbol) IsDynamic() bool { return s.kind != Parameter }

// IsDerivative reports whether the symbol is a time derivative.
func (s *Symbol) IsDerivative() bool { return s.order > 0 }

func (s *Symbol) base() *Symbol {
	if s.root != nil {
		return s.root
	}
	return s
}

func (s *Symbol) String() string {
	return s.base().name + strings.Repeat("'", s.order)
}

// Dot returns the first time derivative of s. The result is cached, so
// repeated calls return the same handle.
func (s *Symbol) Dot() (*Symbol, error) {
	if !s.IsDynamic() {
		return nil, fmt.Errorf("%w: %s", ErrStaticDerivative, s.Name())
	}
	return s.reg.dotOf(s), nil
}

// Derivative returns the n-th time derivative of s.
func (s *Symbol) Derivative(n int) (*Symbol, error) {
	cur := s
	for i := 0; i < n; i++ {
		d, err := cur.Dot()
		if err != nil {
			return nil, err
		}
		cur = d
	}
	return cur, nil
}

// Sym is a convenience that returns s as an Expr.
func (s *Symbol) Sym() Expr { return s }
