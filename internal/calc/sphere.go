package calc

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/stride/internal/runner"
)

// Sphere minimises the sphere function f(x) = sum(x_i^2) by plain gradient
// descent. The global minimum is the origin with cost zero, so the run
// converges once the cost drops below the tolerance.
type Sphere struct {
	// LearningRate scales the gradient step.
	LearningRate float64

	// Tolerance is the cost below which the calculation reports convergence.
	Tolerance float64
}

// NewSphere builds a sphere step. Non-positive knobs fall back to defaults.
func NewSphere(learningRate, tolerance float64) *Sphere {
	def := DefaultParams()
	if learningRate <= 0 {
		learningRate = def.LearningRate
	}
	if tolerance <= 0 {
		tolerance = def.Tolerance
	}
	return &Sphere{LearningRate: learningRate, Tolerance: tolerance}
}

// NewSphereState draws a random starting point in [-1, 1]^dim.
func NewSphereState(dim int, seed int64) []float64 {
	if dim <= 0 {
		dim = DefaultParams().Dimensions
	}
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, dim)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	return x
}

func (s *Sphere) Next(_ context.Context, x []float64) ([]float64, runner.Report, error) {
	// Gradient of sum(x^2) is 2x, so the update is x - 2*lr*x.
	next := make([]float64, len(x))
	copy(next, x)
	floats.AddScaled(next, -2*s.LearningRate, x)

	cost := floats.Dot(next, next)
	if cost < s.Tolerance {
		return next, runner.Converged(cost), nil
	}
	return next, runner.Cost(cost), nil
}

// RunSphere executes the sphere calculation under a fresh runner.
func RunSphere(ctx context.Context, p Params, opts ...runner.Option) (runner.Summary, error) {
	lr := p.LearningRate
	if lr >= 0.5 {
		// Steps of lr >= 0.5 oscillate or diverge on the sphere function.
		lr = DefaultParams().LearningRate
	}
	r, err := runner.New(NewSphereState(p.Dimensions, p.Seed), opts...)
	if err != nil {
		return runner.Summary{}, err
	}
	out := r.Run(ctx, NewSphere(lr, p.Tolerance))
	return out.Summary, nil
}
