package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func series() []Series {
	xs := []float64{0, 0.5, 1, 1.5, 2}
	return []Series{
		{Name: "q1'", X: xs, Y: []float64{0, 0, 0, 0, 0}},
		{Name: "u1'", X: xs, Y: []float64{0, -4.7, -8.25, -9.78, -8.92}},
	}
}

func TestSaveFormats(t *testing.T) {
	p, err := SweepPlot("rotational", "q1", "rate", series())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, name := range []string{"sweep.png", "sweep.svg"} {
		path := filepath.Join(dir, "plots", name)
		if err := Save(p, 4, 3, 72, path); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
		if strings.HasSuffix(name, ".svg") && !strings.Contains(string(data), "<svg") {
			t.Errorf("%s is not svg", name)
		}
		if strings.HasSuffix(name, ".png") && !strings.HasPrefix(string(data), "\x89PNG") {
			t.Errorf("%s is not png", name)
		}
	}
}

func TestSweepPlotRejectsBadData(t *testing.T) {
	tests := []struct {
		name   string
		series []Series
	}{
		{"no series", nil},
		{"length mismatch", []Series{{Name: "a", X: []float64{0, 1}, Y: []float64{0}}}},
		{"single point", []Series{{Name: "a", X: []float64{0}, Y: []float64{0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SweepPlot("t", "x", "y", tt.series); !errors.Is(err, ErrPlotData) {
				t.Errorf("expected ErrPlotData, got %v", err)
			}
		})
	}
}
