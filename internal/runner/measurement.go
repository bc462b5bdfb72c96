package runner

import "time"

// Report is the auxiliary data a Step hands back for one iteration.
// The zero value reports nothing: no cost, no convergence claim.
type Report struct {
	// Cost is the step's scalar progress measure (residual, objective value).
	// Only meaningful when HasCost is true.
	Cost float64

	// HasCost marks whether Cost was actually supplied.
	HasCost bool

	// Converged signals that the algorithm itself considers the run done.
	Converged bool
}

// Cost builds a Report carrying only a cost value.
func Cost(v float64) Report {
	return Report{Cost: v, HasCost: true}
}

// Converged builds a Report carrying a cost and the convergence flag.
func Converged(v float64) Report {
	return Report{Cost: v, HasCost: true, Converged: true}
}

// Measurement is the immutable per-iteration record produced by the runner.
// It is handed to the observer bus and the termination policy, and a bounded
// window of measurements ends up in the Outcome.
type Measurement struct {
	// Iteration is the zero-based index of the iteration that produced this record.
	Iteration uint64 `json:"iteration"`

	// Elapsed is the time since the run started, read at the iteration boundary.
	Elapsed time.Duration `json:"elapsed"`

	// StepDuration is the wall time the iteration step itself took.
	StepDuration time.Duration `json:"stepDuration"`

	// Cost is the cost reported by the step, valid only when HasCost is true.
	Cost float64 `json:"cost"`

	// HasCost marks whether the step reported a cost this iteration.
	HasCost bool `json:"hasCost"`

	// Converged marks whether the step reported convergence this iteration.
	Converged bool `json:"converged,omitempty"`

	// Timestamp records when the measurement was taken.
	Timestamp time.Time `json:"timestamp"`
}
