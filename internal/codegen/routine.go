package codegen

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/san-kum/kanedyn/internal/expr"
)

var ErrResultCount = errors.New("codegen: result symbols do not match result expressions")

var plain = expr.Format{Notation: expr.Plain}

// Result is one named output of a routine.
type Result struct {
	Var  string
	Sym  *expr.Symbol
	Expr expr.Expr
}

// Routine describes a computation: ordered results and the ordered free
// symbols they depend on.
type Routine struct {
	name    string
	results []Result
	args    []*expr.Symbol
}

// MakeRoutine names each result after its symbol, or out0, out1, … when
// resultSyms is nil. Arguments are every free symbol of the results,
// sorted by name.
func MakeRoutine(name string, results []expr.Expr, resultSyms []*expr.Symbol) (*Routine, error) {
	if resultSyms != nil && len(resultSyms) != len(results) {
		return nil, fmt.Errorf("%w: %d symbols for %d expressions", ErrResultCount, len(resultSyms), len(results))
	}
	r := &Routine{name: name, args: expr.FreeAll(results...)}
	for i, e := range results {
		res := Result{Var: fmt.Sprintf("out%d", i), Expr: e}
		if resultSyms != nil {
			res.Sym = resultSyms[i]
			res.Var = plain.Symbol(resultSyms[i])
		}
		r.results = append(r.results, res)
	}
	return r, nil
}

func (r *Routine) Name() string { return r.name }

func (r *Routine) Results() []Result { return append([]Result(nil), r.results...) }

func (r *Routine) ResultVars() []string {
	out := make([]string, len(r.results))
	for i, res := range r.results {
		out[i] = res.Var
	}
	return out
}

func (r *Routine) ResultExprs() []expr.Expr {
	out := make([]expr.Expr, len(r.results))
	for i, res := range r.results {
		out[i] = res.Expr
	}
	return out
}

func (r *Routine) Arguments() []*expr.Symbol { return append([]*expr.Symbol(nil), r.args...) }

func (r *Routine) ArgumentNames() []string {
	out := make([]string, len(r.args))
	for i, a := range r.args {
		out[i] = plain.Symbol(a)
	}
	return out
}

// Compile builds a callable taking every routine argument in order.
func (r *Routine) Compile() (*Callable, error) {
	return Compile(r.ResultExprs(), r.args)
}

type routineJSON struct {
	Name      string       `json:"name"`
	Results   []resultJSON `json:"results"`
	Arguments []string     `json:"arguments"`
}

type resultJSON struct {
	Var  string `json:"var"`
	Expr string `json:"expr"`
}

func (r *Routine) MarshalJSON() ([]byte, error) {
	out := routineJSON{Name: r.name, Arguments: r.ArgumentNames()}
	for _, res := range r.results {
		out.Results = append(out.Results, resultJSON{Var: res.Var, Expr: plain.Expr(res.Expr)})
	}
	return json.Marshal(out)
}
