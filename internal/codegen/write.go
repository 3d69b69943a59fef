package codegen

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/san-kum/kanedyn/internal/expr"
)

type line struct {
	Name string
	Expr string
}

type source struct {
	Package string
	Func    string
	Params  string
	Math    bool
	Temps   []line
	Results []line
}

var goTmpl = template.Must(template.New("go").Parse(`// Code generated by kanedyn; DO NOT EDIT.

package {{.Package}}
{{if .Math}}
import "math"
{{end}}
// {{.Func}} returns {{range $i, $r := .Results}}{{if $i}}, {{end}}{{$r.Name}}{{end}}.
func {{.Func}}({{.Params}}) []float64 {
{{- range .Temps}}
	{{.Name}} := {{.Expr}}
{{- end}}
	return []float64{
{{- range .Results}}
		{{.Expr}}, // {{.Name}}
{{- end}}
	}
}
`))

var cTmpl = template.Must(template.New("c").Parse(`/* Code generated by kanedyn; DO NOT EDIT. */

#include <math.h>

void {{.Func}}({{.Params}}) {
{{- range .Temps}}
	const double {{.Name}} = {{.Expr}};
{{- end}}
{{- range $i, $r := .Results}}
	out[{{$i}}] = {{$r.Expr}}; /* {{$r.Name}} */
{{- end}}
}
`))

func (r *Routine) source(n expr.Notation) source {
	f := expr.Format{Notation: n}
	reps, reduced := expr.CSEPrefix("cse", r.ResultExprs())
	src := source{Func: r.name}
	for _, rep := range reps {
		src.Temps = append(src.Temps, line{Name: rep.Sym.Name(), Expr: f.Expr(rep.Expr)})
	}
	for i, e := range reduced {
		src.Results = append(src.Results, line{Name: r.results[i].Var, Expr: f.Expr(e)})
	}
	for _, l := range append(append([]line(nil), src.Temps...), src.Results...) {
		if strings.Contains(l.Expr, "math.") {
			src.Math = true
		}
	}
	return src
}

// WriteGo emits a Go function computing the routine, with common
// subexpressions hoisted into temporaries.
func (r *Routine) WriteGo(w io.Writer, pkg string) error {
	src := r.source(expr.GoSource)
	src.Package = pkg
	if names := r.ArgumentNames(); len(names) > 0 {
		src.Params = strings.Join(names, ", ") + " float64"
	}
	if err := goTmpl.Execute(w, src); err != nil {
		return fmt.Errorf("codegen: write go: %w", err)
	}
	return nil
}

// WriteC emits a C function that stores the results in out.
func (r *Routine) WriteC(w io.Writer) error {
	src := r.source(expr.CSource)
	var params []string
	for _, a := range r.ArgumentNames() {
		params = append(params, "double "+a)
	}
	src.Params = strings.Join(append(params, "double *out"), ", ")
	if err := cTmpl.Execute(w, src); err != nil {
		return fmt.Errorf("codegen: write c: %w", err)
	}
	return nil
}
