// Package calc supplies ready-made iteration steps the CLI and the job
// server can drive by name. Each calculation owns its state type; the
// uniform entry point hides the generic runner instantiation behind a
// name-keyed registry.
package calc

import (
	"context"
	"fmt"

	"github.com/cwbudde/stride/internal/runner"
)

// Params carries the knobs shared by the built-in calculations. A
// calculation reads the fields it cares about and ignores the rest.
type Params struct {
	// Seed seeds the RNG for calculations with random initial states.
	Seed int64 `json:"seed" yaml:"seed"`

	// Dimensions is the parameter-space dimensionality (sphere).
	Dimensions int `json:"dimensions" yaml:"dimensions"`

	// LearningRate is the gradient-descent step size (sphere).
	LearningRate float64 `json:"learningRate" yaml:"learning_rate"`

	// Tau is the decay time constant in iterations (decay).
	Tau float64 `json:"tau" yaml:"tau"`

	// Tolerance is the cost below which a calculation reports convergence.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// DefaultParams returns workable settings for every built-in calculation.
func DefaultParams() Params {
	return Params{
		Seed:         42,
		Dimensions:   8,
		LearningRate: 0.1,
		Tau:          100,
		Tolerance:    1e-9,
	}
}

// RunFunc executes one named calculation under a freshly built runner and
// returns the type-independent summary.
type RunFunc func(ctx context.Context, p Params, opts ...runner.Option) (runner.Summary, error)

var registry = map[string]RunFunc{
	"decay":  RunDecay,
	"sphere": RunSphere,
}

// Lookup resolves a calculation by name.
func Lookup(name string) (RunFunc, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown calculation: %s", name)
	}
	return fn, nil
}

// Names lists the registered calculations.
func Names() []string {
	return []string{"decay", "sphere"}
}
