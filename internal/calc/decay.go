package calc

import (
	"context"
	"math"

	"github.com/cwbudde/stride/internal/runner"
)

// DecayState tracks an exponentially decaying cost curve. The state is the
// iteration count itself; the cost follows exp(-n/tau).
type DecayState struct {
	Iteration uint64  `json:"iteration"`
	Cost      float64 `json:"cost"`
}

// Decay is a synthetic calculation whose cost decays exponentially towards
// zero. It never converges on its own, which makes it a good probe for the
// budget-driven termination paths.
type Decay struct {
	// Tau is the decay time constant in iterations.
	Tau float64
}

// NewDecay builds a decay step. A non-positive tau falls back to the default.
func NewDecay(tau float64) *Decay {
	if tau <= 0 {
		tau = DefaultParams().Tau
	}
	return &Decay{Tau: tau}
}

func (d *Decay) Next(_ context.Context, s DecayState) (DecayState, runner.Report, error) {
	next := DecayState{
		Iteration: s.Iteration + 1,
		Cost:      math.Exp(-float64(s.Iteration+1) / d.Tau),
	}
	return next, runner.Cost(next.Cost), nil
}

// RunDecay executes the decay calculation under a fresh runner.
func RunDecay(ctx context.Context, p Params, opts ...runner.Option) (runner.Summary, error) {
	r, err := runner.New(DecayState{}, opts...)
	if err != nil {
		return runner.Summary{}, err
	}
	out := r.Run(ctx, NewDecay(p.Tau))
	return out.Summary, nil
}
