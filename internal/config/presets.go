package config

import "sort"

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"smoke": {
			Mechanism: "pendulum",
			Params:    map[string]float64{"g": 9.81},
			State:     map[string]float64{"u1": 1},
		},
		"moon": {
			Mechanism: "pendulum",
			Params:    map[string]float64{"g": 1.62},
			State:     map[string]float64{"u1": 0},
		},
	},
	"rotational": {
		"small": {
			Mechanism: "rotational",
			State:     map[string]float64{"q1": 0.2, "u1": 0},
		},
		"large": {
			Mechanism: "rotational",
			State:     map[string]float64{"q1": 2.5, "u1": 0},
		},
		"spinning": {
			Mechanism: "rotational",
			State:     map[string]float64{"q1": 0.1, "u1": 8},
		},
	},
	"double_pendulum": {
		"symmetric": {
			Mechanism: "double_pendulum",
			State:     map[string]float64{"q1": 1.5, "q2": 1.5, "u1": 0, "u2": 0},
		},
		"chaos": {
			Mechanism: "double_pendulum",
			State:     map[string]float64{"q1": 3, "q2": 3, "u1": 0, "u2": 0},
		},
		"gentle": {
			Mechanism: "double_pendulum",
			State:     map[string]float64{"q1": 0.3, "q2": 0.3, "u1": 0, "u2": 0},
		},
	},
	"platform": {
		"rest": {
			Mechanism: "platform",
			State:     map[string]float64{"q3": 1},
		},
		"lift": {
			Mechanism: "platform",
			Params: map[string]float64{
				"F1": 25, "F2": 25, "F3": 25, "F4": 25, "F5": 25, "F6": 25,
			},
			State: map[string]float64{"q3": 1},
		},
		"tilted": {
			Mechanism: "platform",
			State:     map[string]float64{"q3": 1.1, "q4": 0.1, "q5": -0.05, "u6": 0.3},
		},
	},
}

func GetPreset(mechanism, preset string) *Config {
	mechPresets, ok := Presets[mechanism]
	if !ok {
		return nil
	}
	cfg, ok := mechPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(mechanism string) []string {
	mechPresets, ok := Presets[mechanism]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mechPresets))
	for name := range mechPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply copies a preset's bindings onto c. Later values win.
func (c *Config) Apply(p *Config) {
	if p.Mechanism != "" {
		c.Mechanism = p.Mechanism
	}
	for k, v := range p.Bindings() {
		c.Set(k, v)
	}
}
