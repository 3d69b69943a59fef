package dynamo

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

var errLeaf = errors.New("leaf")

func TestDerivationError(t *testing.T) {
	err := Wrap("reduce", ErrSolve, errLeaf).WithSymbol("u2").WithEquation(3)
	if !errors.Is(err, ErrSolve) {
		t.Error("category not reachable")
	}
	if !errors.Is(err, errLeaf) {
		t.Error("wrapped error not reachable")
	}
	if errors.Is(err, ErrModeling) {
		t.Error("unexpected category match")
	}
	msg := err.Error()
	for _, want := range []string{"reduce", "u2", "equation 3", "leaf"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestParallelForCoversRange(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		minChunk int
	}{
		{"serial", 10, 100},
		{"chunked", 1000, 16},
		{"empty", 0, 4},
		{"uneven", 1001, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			var calls atomic.Int32
			ParallelFor(tt.n, tt.minChunk, func(start, end int) {
				calls.Add(1)
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestStateHelpers(t *testing.T) {
	a := State{1, 2, 3}
	b := State{1, 2.5, 3}
	d, err := a.MaxAbsDiff(b)
	if err != nil || d != 0.5 {
		t.Errorf("MaxAbsDiff = %v, %v", d, err)
	}
	if _, err := a.MaxAbsDiff(State{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if n := (State{3, 4}).Norm(); n != 5 {
		t.Errorf("Norm = %v, want 5", n)
	}
	if diff := b.Sub(a); diff[0] != 0 || diff[1] != 0.5 || diff[2] != 0 {
		t.Errorf("Sub = %v", diff)
	}
	if (State{1, nan()}).IsValid() {
		t.Error("NaN state reported valid")
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
