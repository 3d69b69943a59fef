package config

import (
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mechanism != "pendulum" {
		t.Errorf("expected mechanism pendulum, got %s", cfg.Mechanism)
	}
	if cfg.Timeout <= 0 {
		t.Error("timeout should be positive")
	}
	if cfg.Sweep.Steps <= 1 {
		t.Error("sweep needs at least two steps")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("rotational", "small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.State["q1"] != 0.2 {
		t.Errorf("expected q1 0.2, got %f", cfg.State["q1"])
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("pendulum", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "small"); cfg != nil {
		t.Error("expected nil for nonexistent mechanism")
	}
}

func TestListPresets(t *testing.T) {
	got := ListPresets("double_pendulum")
	if want := []string{"chaos", "gentle", "symmetric"}; !slices.Equal(got, want) {
		t.Errorf("ListPresets = %v, want %v", got, want)
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent mechanism")
	}
}

func TestPresetsNameTheirMechanism(t *testing.T) {
	for mech, presets := range Presets {
		for name, p := range presets {
			if p.Mechanism != mech {
				t.Errorf("%s/%s names mechanism %q", mech, name, p.Mechanism)
			}
		}
	}
}

func TestApplyAndBindings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Set("g", 3)
	cfg.Apply(GetPreset("pendulum", "moon"))

	b := cfg.Bindings()
	if b["g"] != 1.62 || b["u1"] != 0 {
		t.Errorf("bindings = %v", b)
	}
	if _, ok := b["u1"]; !ok {
		t.Error("state binding lost")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanedyn.yaml")
	cfg := DefaultConfig()
	cfg.Mechanism = "double_pendulum"
	cfg.Timeout = 45 * time.Second
	cfg.State = map[string]float64{"q1": 0.7}
	cfg.Sweep.Symbol = "q2"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Mechanism != "double_pendulum" || got.Timeout != 45*time.Second {
		t.Errorf("got %+v", got)
	}
	if got.State["q1"] != 0.7 || got.Sweep.Symbol != "q2" {
		t.Errorf("state %v sweep %+v", got.State, got.Sweep)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
