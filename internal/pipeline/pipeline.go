// Package pipeline runs a mechanism through Kane's method, reduction and
// code generation, and evaluates the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/kanedyn/internal/codegen"
	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/kane"
	"github.com/san-kum/kanedyn/internal/models"
	"github.com/san-kum/kanedyn/internal/reduce"
)

var ErrMissingValue = errors.New("pipeline: no value bound for argument")

type Options struct {
	// Timeout caps the reduction stage.
	Timeout time.Duration
	// Verify substitutes the reduced form back into M·ẋ = f.
	Verify bool
	Logger *slog.Logger
}

type Timings struct {
	Kane    time.Duration
	Reduce  time.Duration
	Verify  time.Duration
	Compile time.Duration
}

// Result holds every artefact of one derivation run.
type Result struct {
	Mechanism *models.Mechanism
	System    *kane.System
	Reduced   *reduce.Reduced
	Routine   *codegen.Routine
	Callable  *codegen.Callable
	Timings   Timings
}

// Equations builds the kd set and forms Kane's equations for m.
func Equations(m *models.Mechanism, log *slog.Logger) (*kane.System, error) {
	kd, err := kane.NewKinDiff(m.Coordinates, m.Speeds, m.KinDiff)
	if err != nil {
		return nil, err
	}
	method, err := kane.New(m.Graph, m.Coordinates, m.Speeds, kd)
	if err != nil {
		return nil, err
	}
	if log != nil {
		method = method.WithLogger(log)
	}
	return method.Equations(m.Assembly.Bodies(), m.Assembly.Loads())
}

// Derive runs the full pipeline on m.
func Derive(ctx context.Context, m *models.Mechanism, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("mechanism", m.Name)
	res := &Result{Mechanism: m}

	start := time.Now()
	sys, err := Equations(m, log)
	if err != nil {
		return nil, err
	}
	res.System = sys
	res.Timings.Kane = time.Since(start)
	log.Info("kane equations formed", "states", len(sys.States()), "ops", sys.Ops(), "elapsed", res.Timings.Kane)

	start = time.Now()
	red, err := reduce.Reduce(ctx, sys, sys.KinDiffDict(), reduce.Options{Timeout: opts.Timeout, Logger: log})
	if err != nil {
		return nil, err
	}
	res.Reduced = red
	res.Timings.Reduce = time.Since(start)

	if opts.Verify {
		start = time.Now()
		if err := red.Verify(ctx); err != nil {
			return nil, err
		}
		res.Timings.Verify = time.Since(start)
		log.Info("identity verified", "elapsed", res.Timings.Verify)
	}

	start = time.Now()
	rt, err := codegen.MakeRoutine(m.Name, red.RHS, red.Rates)
	if err != nil {
		return nil, err
	}
	c, err := rt.Compile()
	if err != nil {
		return nil, err
	}
	res.Routine, res.Callable = rt, c
	res.Timings.Compile = time.Since(start)
	log.Debug("compiled", "args", rt.ArgumentNames(), "elapsed", res.Timings.Compile)
	return res, nil
}

// Arguments orders the bound values of m, with overrides applied, to
// match the routine arguments.
func (r *Result) Arguments(overrides map[string]float64) ([]float64, error) {
	env, err := r.Mechanism.Bind(overrides)
	if err != nil {
		return nil, err
	}
	args := r.Routine.Arguments()
	vals := make([]float64, len(args))
	for i, a := range args {
		v, ok := env[a]
		if !ok {
			return nil, dynamo.Wrap("bind arguments", dynamo.ErrEvaluation, ErrMissingValue).WithSymbol(a.Name())
		}
		vals[i] = v
	}
	return vals, nil
}

// Evaluate computes ẋ with the mechanism defaults and overrides.
func (r *Result) Evaluate(overrides map[string]float64) ([]float64, error) {
	vals, err := r.Arguments(overrides)
	if err != nil {
		return nil, err
	}
	return r.Callable.Call(vals)
}

// Smoke binds only the mechanism's smoke arguments and returns the
// residual expressions. Entries that depend on nothing else come back as
// constants.
func (r *Result) Smoke() ([]expr.Expr, error) {
	syms, err := r.Mechanism.Symbols(r.Mechanism.Smoke...)
	if err != nil {
		return nil, err
	}
	c, err := codegen.Compile(r.Reduced.RHS, syms)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(syms))
	for i, s := range syms {
		v, ok := r.Mechanism.Defaults[s.Name()]
		if !ok {
			return nil, dynamo.Wrap("smoke", dynamo.ErrEvaluation, ErrMissingValue).WithSymbol(s.Name())
		}
		vals[i] = v
	}
	return c.Partial(vals)
}

// OutputValue is an evaluated configuration output.
type OutputValue struct {
	Name  string
	Value float64
}

// Outputs evaluates the mechanism's configuration outputs.
func (r *Result) Outputs(overrides map[string]float64) ([]OutputValue, error) {
	env, err := r.Mechanism.Bind(overrides)
	if err != nil {
		return nil, err
	}
	out := make([]OutputValue, len(r.Mechanism.Outputs))
	for i, o := range r.Mechanism.Outputs {
		v, err := expr.Eval(o.Expr, env)
		if err != nil {
			return nil, dynamo.Wrap("outputs", dynamo.ErrEvaluation, err).WithEquation(i)
		}
		out[i] = OutputValue{Name: o.Name, Value: v}
	}
	return out, nil
}

// Lines renders the reduced equations.
func (r *Result) Lines(f expr.Format) []string {
	return r.Reduced.Lines(f)
}

// Model fixes the parameters and exposes the compiled equations as a
// dynamo.System over x = [q; u].
func (r *Result) Model(overrides map[string]float64) (*Model, error) {
	base, err := r.Arguments(overrides)
	if err != nil {
		return nil, err
	}
	pos := make(map[*expr.Symbol]int, len(base))
	for i, a := range r.Routine.Arguments() {
		pos[a] = i
	}
	states := r.System.States()
	slots := make([]int, len(states))
	for i, s := range states {
		slots[i] = -1
		if j, ok := pos[s]; ok {
			slots[i] = j
		}
	}
	return &Model{c: r.Callable, base: base, slots: slots}, nil
}

// State returns the bound [q; u] vector.
func (r *Result) State(overrides map[string]float64) (dynamo.State, error) {
	env, err := r.Mechanism.Bind(overrides)
	if err != nil {
		return nil, err
	}
	states := r.System.States()
	x := make(dynamo.State, len(states))
	for i, s := range states {
		v, ok := env[s]
		if !ok {
			return nil, dynamo.Wrap("bind state", dynamo.ErrEvaluation, ErrMissingValue).WithSymbol(s.Name())
		}
		x[i] = v
	}
	return x, nil
}

// Model is a compiled mechanism with fixed parameters. States that do not
// appear in the equations are accepted and ignored.
type Model struct {
	c     *codegen.Callable
	base  []float64
	slots []int
}

func (m *Model) StateDim() int { return len(m.slots) }

// DeriveErr evaluates ẋ at x.
func (m *Model) DeriveErr(x dynamo.State) (dynamo.State, error) {
	if len(x) != len(m.slots) {
		return nil, dynamo.Wrap("derive", dynamo.ErrEvaluation,
			fmt.Errorf("%w: got %d, want %d", dynamo.ErrDimensionMismatch, len(x), len(m.slots)))
	}
	vals := make([]float64, len(m.base))
	copy(vals, m.base)
	for i, j := range m.slots {
		if j >= 0 {
			vals[j] = x[i]
		}
	}
	out := make(dynamo.State, m.c.Len())
	if err := m.c.CallInto(out, vals); err != nil {
		return nil, err
	}
	return out, nil
}

// Derive implements dynamo.System. Evaluation failures yield NaN entries.
func (m *Model) Derive(x dynamo.State) dynamo.State {
	out, err := m.DeriveErr(x)
	if err != nil {
		out = make(dynamo.State, len(m.slots))
		for i := range out {
			out[i] = math.NaN()
		}
	}
	return out
}
