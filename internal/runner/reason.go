package runner

import "fmt"

// Reason is the closed set of causes for which a run stops.
// Exactly one reason is attached to every completed run.
type Reason int

const (
	// ReasonNone is the zero value; it never appears in a completed outcome.
	ReasonNone Reason = iota

	// ReasonStepFailed: the iteration step returned an error.
	ReasonStepFailed

	// ReasonCancelled: the cancellation signal was observed at an iteration boundary.
	ReasonCancelled

	// ReasonConverged: the step itself reported convergence.
	ReasonConverged

	// ReasonTargetCostReached: the reported cost dropped to the configured target.
	ReasonTargetCostReached

	// ReasonTimeBudgetExceeded: elapsed time passed the configured budget.
	ReasonTimeBudgetExceeded

	// ReasonMaxIterationsReached: the configured iteration cap was hit.
	ReasonMaxIterationsReached
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonStepFailed:
		return "step_failed"
	case ReasonCancelled:
		return "cancelled"
	case ReasonConverged:
		return "converged"
	case ReasonTargetCostReached:
		return "target_cost_reached"
	case ReasonTimeBudgetExceeded:
		return "time_budget_exceeded"
	case ReasonMaxIterationsReached:
		return "max_iterations_reached"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// ParseReason converts a stored string back into a Reason.
// Unknown strings map to ReasonNone.
func ParseReason(s string) Reason {
	switch s {
	case "step_failed":
		return ReasonStepFailed
	case "cancelled":
		return ReasonCancelled
	case "converged":
		return ReasonConverged
	case "target_cost_reached":
		return ReasonTargetCostReached
	case "time_budget_exceeded":
		return ReasonTimeBudgetExceeded
	case "max_iterations_reached":
		return ReasonMaxIterationsReached
	default:
		return ReasonNone
	}
}

// MarshalText implements encoding.TextMarshaler so reasons serialize as their
// string form in JSON outcomes and stored results.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	*r = ParseReason(string(text))
	return nil
}
