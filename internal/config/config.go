package config

import (
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout    = 2 * time.Minute
	DefaultSweepSteps = 64
	DefaultSweepMin   = -math.Pi
	DefaultSweepMax   = math.Pi
	DefaultSamples    = 25
)

type Config struct {
	Mechanism string        `yaml:"mechanism"`
	Notation  string        `yaml:"notation"`
	Timeout   time.Duration `yaml:"timeout"`
	Verify    bool          `yaml:"verify"`
	Seed      uint64        `yaml:"seed"`
	// Params and State bind symbols by name on top of the mechanism
	// defaults.
	Params map[string]float64 `yaml:"params,omitempty"`
	State  map[string]float64 `yaml:"state,omitempty"`
	Sweep  SweepConfig        `yaml:"sweep"`
	Check  CheckConfig        `yaml:"check"`
}

type SweepConfig struct {
	Symbol string  `yaml:"symbol"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Steps  int     `yaml:"steps"`
	// Result selects the plotted entry of ẋ; negative plots the last one.
	Result int `yaml:"result"`
}

type CheckConfig struct {
	Samples   int     `yaml:"samples"`
	Scale     float64 `yaml:"scale"`
	Tolerance float64 `yaml:"tolerance"`
}

func DefaultConfig() *Config {
	return &Config{
		Mechanism: "pendulum",
		Notation:  "mechanics",
		Timeout:   DefaultTimeout,
		Verify:    true,
		Seed:      1,
		Sweep: SweepConfig{
			Symbol: "q1",
			Min:    DefaultSweepMin,
			Max:    DefaultSweepMax,
			Steps:  DefaultSweepSteps,
			Result: -1,
		},
		Check: CheckConfig{
			Samples:   DefaultSamples,
			Scale:     2,
			Tolerance: 1e-9,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Bindings merges Params and State into one name/value map.
func (c *Config) Bindings() map[string]float64 {
	out := make(map[string]float64, len(c.Params)+len(c.State))
	for k, v := range c.Params {
		out[k] = v
	}
	for k, v := range c.State {
		out[k] = v
	}
	return out
}

// Set records a binding, creating the params map if needed.
func (c *Config) Set(name string, value float64) {
	if c.Params == nil {
		c.Params = make(map[string]float64)
	}
	c.Params[name] = value
}
