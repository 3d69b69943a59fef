package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/models"
	"github.com/san-kum/kanedyn/internal/physics"
)

var ErrUnknownMechanism = errors.New("pipeline: unknown mechanism")

// Builder constructs a fresh mechanism. Every call returns new symbols.
type Builder func() (*models.Mechanism, error)

// Reference builds a closed-form model configured with named values.
type Reference func(vals map[string]float64) (dynamo.System, error)

type Registry struct {
	mechanisms map[string]Builder
	references map[string]Reference
}

// NewRegistry returns the registry of shipped mechanisms.
func NewRegistry() *Registry {
	r := &Registry{
		mechanisms: make(map[string]Builder),
		references: make(map[string]Reference),
	}

	r.mechanisms["pendulum"] = models.NewPendulum
	r.mechanisms["platform"] = models.NewPlatform
	r.mechanisms["rotational"] = models.NewRotational
	r.mechanisms["double_pendulum"] = models.NewDoublePendulum

	r.references["rotational"] = func(vals map[string]float64) (dynamo.System, error) {
		p := physics.NewPendulum()
		return p, physics.Configure(p, vals)
	}
	r.references["double_pendulum"] = func(vals map[string]float64) (dynamo.System, error) {
		d := physics.NewDoublePendulum()
		return d, physics.Configure(d, vals)
	}

	return r
}

// Register adds or replaces a mechanism.
func (r *Registry) Register(name string, b Builder, ref Reference) {
	r.mechanisms[name] = b
	if ref != nil {
		r.references[name] = ref
	} else {
		delete(r.references, name)
	}
}

func (r *Registry) Get(name string) (*models.Mechanism, error) {
	fn, ok := r.mechanisms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMechanism, name)
	}
	return fn()
}

// Reference returns the closed-form model for name, if one exists.
func (r *Registry) Reference(name string, vals map[string]float64) (dynamo.System, bool, error) {
	fn, ok := r.references[name]
	if !ok {
		return nil, false, nil
	}
	sys, err := fn(vals)
	return sys, true, err
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.mechanisms))
	for name := range r.mechanisms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
