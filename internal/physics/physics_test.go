package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/kanedyn/internal/dynamo"
)

func TestPendulumDerive(t *testing.T) {
	p := NewPendulum()
	got := p.Derive(dynamo.State{math.Pi / 2, 0.5})
	if got[0] != 0.5 {
		t.Errorf("theta' = %v, want 0.5", got[0])
	}
	if math.Abs(got[1]+9.81) > 1e-12 {
		t.Errorf("omega' = %v, want -9.81", got[1])
	}
}

func TestPendulumMassCancels(t *testing.T) {
	light, heavy := NewPendulum(), NewPendulum()
	heavy.Mass = 40
	x := dynamo.State{1.1, -0.7}
	if a, b := light.Derive(x), heavy.Derive(x); a[1] != b[1] {
		t.Errorf("omega' depends on mass: %v vs %v", a[1], b[1])
	}
	if e := heavy.Energy(dynamo.State{0, 0}); e != 0 {
		t.Errorf("energy at rest = %v, want 0", e)
	}
}

func TestDoublePendulumAtRest(t *testing.T) {
	d := NewDoublePendulum()
	got := d.Derive(dynamo.State{0, 0, 0, 0})
	for i, v := range got {
		if v != 0 {
			t.Errorf("x'[%d] = %v at rest, want 0", i, v)
		}
	}
}

func TestDoublePendulumEnergyMinimum(t *testing.T) {
	d := NewDoublePendulum()
	rest := d.Energy(dynamo.State{0, 0, 0, 0})
	if want := -(d.M1*d.L1 + d.M2*(d.L1+d.L2)) * d.Gravity; math.Abs(rest-want) > 1e-12 {
		t.Errorf("energy at rest = %v, want %v", rest, want)
	}
	if d.Energy(dynamo.State{0.3, -0.2, 0.1, 0}) <= rest {
		t.Error("displaced state should carry more energy than rest")
	}
}

func TestConfigure(t *testing.T) {
	d := NewDoublePendulum()
	err := Configure(d, map[string]float64{"m2": 3, "l1": 2, "q1": 0.4})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if d.M2 != 3 || d.L1 != 2 {
		t.Errorf("got m2=%v l1=%v", d.M2, d.L1)
	}

	p := NewPendulum()
	for _, name := range []string{"mass", "damping"} {
		if err := p.SetParam(name, 1); !errors.Is(err, ErrUnknownParam) {
			t.Errorf("SetParam(%q): expected ErrUnknownParam, got %v", name, err)
		}
	}
}
