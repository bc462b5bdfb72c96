package runner

import "time"

// policy decides, after each iteration, whether the run must stop and why.
// It is a one-way state machine: once stopped, every later evaluation returns
// the same reason, so a run can never report two termination reasons.
type policy struct {
	maxIterations    uint64
	hasMaxIterations bool
	targetCost       float64
	hasTargetCost    bool
	timeBudget       time.Duration
	hasTimeBudget    bool

	stopped bool
	reason  Reason
}

func newPolicy(s *settings) *policy {
	return &policy{
		maxIterations:    s.maxIterations,
		hasMaxIterations: s.hasMaxIterations,
		targetCost:       s.targetCost,
		hasTargetCost:    s.hasTargetCost,
		timeBudget:       s.timeBudget,
		hasTimeBudget:    s.hasTimeBudget,
	}
}

// conditions is the snapshot the policy evaluates after an iteration.
type conditions struct {
	stepErr    error
	cancelled  bool
	report     Report
	elapsed    time.Duration
	iterations uint64
}

// stop forces the policy into its terminal state. The first reason wins.
func (p *policy) stop(r Reason) Reason {
	if !p.stopped {
		p.stopped = true
		p.reason = r
	}
	return p.reason
}

// evaluate resolves the termination reason for the given conditions.
// The order is fixed and is the tie-break when several conditions hold in the
// same iteration: failure and cancellation outrank quality signals, which
// outrank soft limits.
func (p *policy) evaluate(c conditions) (Reason, bool) {
	if p.stopped {
		return p.reason, true
	}
	switch {
	case c.stepErr != nil:
		return p.stop(ReasonStepFailed), true
	case c.cancelled:
		return p.stop(ReasonCancelled), true
	case c.report.Converged:
		return p.stop(ReasonConverged), true
	case p.hasTargetCost && c.report.HasCost && c.report.Cost <= p.targetCost:
		return p.stop(ReasonTargetCostReached), true
	case p.hasTimeBudget && c.elapsed > p.timeBudget:
		return p.stop(ReasonTimeBudgetExceeded), true
	case p.hasMaxIterations && c.iterations >= p.maxIterations:
		return p.stop(ReasonMaxIterationsReached), true
	}
	return ReasonNone, false
}
