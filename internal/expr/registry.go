package expr

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var nextID atomic.Uint64

// Registry issues symbols for one mechanism. Names are unique within a
// registry; lookup by name is only meant for the I/O edge (config bindings,
// CLI arguments).
type Registry struct {
	name string

	mu     sync.Mutex
	byName map[string]*Symbol
	order  []*Symbol
}

// NewRegistry creates an empty registry.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, byName: make(map[string]*Symbol)}
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

func (r *Registry) declare(name string, kind Kind) (*Symbol, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateSymbol, name, r.name)
	}
	s := &Symbol{id: nextID.Add(1), name: name, kind: kind, reg: r}
	s.h = mix(mix(14695981039346656037, tagSymbol), s.id)
	r.byName[name] = s
	r.order = append(r.order, s)
	return s, nil
}

func (r *Registry) declareAll(kind Kind, names []string) ([]*Symbol, error) {
	out := make([]*Symbol, 0, len(names))
	for _, n := range names {
		s, err := r.declare(n, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Parameter declares a constant.
func (r *Registry) Parameter(name string) (*Symbol, error) { return r.declare(name, Parameter) }

// Parameters declares several constants in order.
func (r *Registry) Parameters(names ...string) ([]*Symbol, error) {
	return r.declareAll(Parameter, names)
}

// Coordinate declares a generalized coordinate.
func (r *Registry) Coordinate(name string) (*Symbol, error) { return r.declare(name, Coordinate) }

// Coordinates declares several generalized coordinates in order.
func (r *Registry) Coordinates(names ...string) ([]*Symbol, error) {
	return r.declareAll(Coordinate, names)
}

// Speed declares a generalized speed.
func (r *Registry) Speed(name string) (*Symbol, error) { return r.declare(name, Speed) }

// Speeds declares several generalized speeds in order.
func (r *Registry) Speeds(names ...string) ([]*Symbol, error) {
	return r.declareAll(Speed, names)
}

// Lookup finds a base symbol by name.
func (r *Registry) Lookup(name string) (*Symbol, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[name]
	return s, ok
}

// Symbols returns the declared base symbols in declaration order.
func (r *Registry) Symbols() []*Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Symbol(nil), r.order...)
}

// Names returns the declared names sorted alphabetically.
func (r *Registry) Names() []string {
	syms := r.Symbols()
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.name
	}
	sort.Strings(names)
	return names
}

// Dot is Symbol.Dot for callers holding the registry.
func (r *Registry) Dot(s *Symbol) (*Symbol, error) {
	if s.reg != r {
		return nil, fmt.Errorf("%w: %s belongs to %s", ErrForeignSymbol, s, s.reg.Name())
	}
	return s.Dot()
}

func (r *Registry) dotOf(s *Symbol) *Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.dot != nil {
		return s.dot
	}
	d := &Symbol{
		id:    nextID.Add(1),
		kind:  s.kind,
		order: s.order + 1,
		root:  s.base(),
		reg:   r,
	}
	d.h = mix(mix(14695981039346656037, tagSymbol), d.id)
	s.dot = d
	return d
}

// MustSymbols panics on error. Intended for fixtures and tests.
func MustSymbols(syms []*Symbol, err error) []*Symbol {
	if err != nil {
		panic(err)
	}
	return syms
}
