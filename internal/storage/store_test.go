package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type rawRoutine string

func (r rawRoutine) MarshalJSON() ([]byte, error) { return []byte(r), nil }

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Mechanism: "pendulum",
		Notation:  "mechanics",
		States:    []string{"q1", "u1"},
		Arguments: []string{"g", "u1"},
		Ops:       2,
		Verified:  true,
		Timings:   map[string]float64{"reduce": 0.25},
	}
	lines := []string{"q1' = u1", "u1' = g"}
	runID, err := st.Save(meta, lines, rawRoutine(`{"name":"pendulum"}`))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "pendulum_") {
		t.Errorf("unexpected run id %q", runID)
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.ID != runID || got.Mechanism != "pendulum" || !got.Verified {
		t.Errorf("metadata = %+v", got)
	}
	if got.Timings["reduce"] != 0.25 {
		t.Errorf("expected reduce timing 0.25, got %f", got.Timings["reduce"])
	}

	eqs, err := st.LoadEquations(runID)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(eqs, lines) {
		t.Errorf("equations = %q", eqs)
	}

	raw, err := st.LoadRoutine(runID)
	if err != nil {
		t.Fatal(err)
	}
	var routine struct{ Name string }
	if err := json.Unmarshal(raw, &routine); err != nil || routine.Name != "pendulum" {
		t.Errorf("routine = %s (%v)", raw, err)
	}
}

func TestStoreSweep(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Mechanism: "rotational"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	header := []string{"q1", "q1d", "u1d"}
	rows := [][]float64{{0, 0, 0}, {0.5, 0, -4.703}}
	if err := st.SaveSweep(runID, "q1", header, rows); err != nil {
		t.Fatalf("save sweep: %v", err)
	}
	gotHeader, gotRows, err := st.LoadSweep(runID, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(gotHeader, header) {
		t.Errorf("header = %v", gotHeader)
	}
	if len(gotRows) != 2 || gotRows[1][2] != -4.703 {
		t.Errorf("rows = %v", gotRows)
	}

	err = st.SaveSweep(runID, "bad", header, [][]float64{{1}})
	if !errors.Is(err, ErrBadSweep) {
		t.Errorf("expected ErrBadSweep, got %v", err)
	}
}

func TestStoreListOrdered(t *testing.T) {
	st := New(t.TempDir())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"platform", "pendulum", "rotational"} {
		meta := RunMetadata{Mechanism: name, Timestamp: base.Add(time.Duration(3-i) * time.Minute)}
		if _, err := st.Save(meta, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, r := range runs {
		names = append(names, r.Mechanism)
	}
	if want := []string{"rotational", "pendulum", "platform"}; !slices.Equal(names, want) {
		t.Errorf("List order = %v, want %v", names, want)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	data := &ExportData{
		Mechanism: "pendulum",
		States:    []string{"q1", "u1"},
		Equations: []Equation{{Rate: "q1'", Expr: "u1"}, {Rate: "u1'", Expr: "g"}},
		Routine:   rawRoutine(`{"name":"pendulum"}`),
		Values:    []float64{1, 9.81},
	}
	if err := ExportJSONTo(&buf, data); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Mechanism string
		Equations []Equation
		Routine   struct{ Name string }
		Values    []float64
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Mechanism != "pendulum" || len(got.Equations) != 2 || got.Routine.Name != "pendulum" {
		t.Errorf("decoded %+v", got)
	}
	if !slices.Equal(got.Values, []float64{1, 9.81}) {
		t.Errorf("values = %v", got.Values)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(path, data); err != nil {
		t.Fatal(err)
	}
}
