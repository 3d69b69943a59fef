package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/pipeline"
)

func TestWriteRoutine(t *testing.T) {
	m, err := registry.Get("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	res, err := pipeline.Derive(context.Background(), m, pipeline.Options{Timeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		f    expr.Format
		want []string
	}{
		{"mechanics", expr.Format{Notation: expr.Mechanics}, []string{
			"routine:   pendulum",
			"results:   q1d u1d",
			"arguments: g u1",
			"  q1d = u1",
			"  u1d = g",
		}},
		{"c", expr.Format{Notation: expr.CSource}, []string{"  u1d = g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeRoutine(&buf, res.Routine, tt.f); err != nil {
				t.Fatal(err)
			}
			lines := strings.Split(buf.String(), "\n")
			for _, want := range tt.want {
				found := false
				for _, l := range lines {
					if l == want {
						found = true
					}
				}
				if !found {
					t.Errorf("missing line %q in:\n%s", want, buf.String())
				}
			}
		})
	}
}
