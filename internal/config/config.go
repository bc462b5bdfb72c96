// Package config loads run configuration from YAML files. Flags on the CLI
// override anything read from a file; the file covers the long tail of
// calculation parameters that would be unwieldy as flags.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/stride/internal/calc"
)

// Duration wraps time.Duration so YAML files can use human-readable forms
// like "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// RunConfig describes a complete run: which calculation to drive, the
// termination budgets, and the sinks to attach.
type RunConfig struct {
	// Calculation names the step implementation to run.
	Calculation string `yaml:"calculation"`

	// MaxIterations caps the run; zero means unlimited.
	MaxIterations uint64 `yaml:"max_iterations"`

	// TargetCost stops the run once the reported cost drops to or below it.
	TargetCost *float64 `yaml:"target_cost,omitempty"`

	// TimeBudget bounds the wall time of the run; zero means unlimited.
	TimeBudget Duration `yaml:"time_budget,omitempty"`

	// MeasurementWindow bounds the retained per-iteration measurements;
	// zero keeps all of them.
	MeasurementWindow int `yaml:"measurement_window"`

	// LogEvery emits a progress log line every n iterations; zero disables
	// periodic logging.
	LogEvery uint64 `yaml:"log_every"`

	// Trace enables the JSONL iteration trace.
	Trace bool `yaml:"trace"`

	// DataDir is where results and traces are stored.
	DataDir string `yaml:"data_dir"`

	// Params tunes the selected calculation.
	Params calc.Params `yaml:"params"`
}

// Default returns the configuration used when no file is given.
func Default() RunConfig {
	return RunConfig{
		Calculation:   "decay",
		MaxIterations: 1000,
		LogEvery:      100,
		DataDir:       "data",
		Params:        calc.DefaultParams(),
	}
}

// Load reads a YAML run configuration, layered over the defaults.
func Load(path string) (RunConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the runner would refuse anyway, so the
// error surfaces before any work starts.
func (c RunConfig) Validate() error {
	if c.Calculation == "" {
		return fmt.Errorf("calculation must be set")
	}
	if c.TargetCost != nil && math.IsNaN(*c.TargetCost) {
		return fmt.Errorf("target_cost must not be NaN")
	}
	if time.Duration(c.TimeBudget) < 0 {
		return fmt.Errorf("time_budget must not be negative")
	}
	if c.MeasurementWindow < 0 {
		return fmt.Errorf("measurement_window must not be negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	return nil
}
