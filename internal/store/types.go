package store

import (
	"time"

	"github.com/cwbudde/stride/internal/runner"
)

// RunSpec is the configuration snapshot persisted alongside a result, so a
// stored run can be interpreted (and re-run) without the original command line.
type RunSpec struct {
	// Calculation names the step implementation that was driven.
	Calculation string `json:"calculation"`

	// MaxIterations is the configured iteration cap (0 = unbounded).
	MaxIterations uint64 `json:"maxIterations,omitempty"`

	// TargetCost is the configured stop-at cost, when one was set.
	TargetCost *float64 `json:"targetCost,omitempty"`

	// TimeBudget is the configured wall-clock budget, when one was set.
	TimeBudget time.Duration `json:"timeBudget,omitempty"`

	// Seed is the RNG seed for calculations that use one.
	Seed int64 `json:"seed,omitempty"`
}

// Result is the persisted form of a completed run. It is derived losslessly
// from the runner's summary; the opaque final state is deliberately not
// stored, since the store cannot interpret it.
type Result struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"runId"`

	// Reason is the termination reason, in its string form.
	Reason string `json:"reason"`

	// Iterations is the number of completed iterations.
	Iterations uint64 `json:"iterations"`

	// Elapsed is the total wall time of the run.
	Elapsed time.Duration `json:"elapsed"`

	// FinalCost is the cost of the last iteration, when any cost was reported.
	FinalCost *float64 `json:"finalCost,omitempty"`

	// BestCost is the lowest cost observed, when any cost was reported.
	BestCost *float64 `json:"bestCost,omitempty"`

	// BestIteration is the iteration index where BestCost occurred.
	BestIteration uint64 `json:"bestIteration,omitempty"`

	// Error carries the step failure message when Reason is step_failed.
	Error string `json:"error,omitempty"`

	// Timestamp records when the result was produced.
	Timestamp time.Time `json:"timestamp"`

	// Spec holds the configuration the run was started with.
	Spec RunSpec `json:"spec"`
}

// NewResult converts a run summary into a persistable result.
func NewResult(runID string, sum runner.Summary, spec RunSpec) *Result {
	r := &Result{
		RunID:      runID,
		Reason:     sum.Reason.String(),
		Iterations: sum.Iterations,
		Elapsed:    sum.Elapsed,
		Timestamp:  time.Now(),
		Spec:       spec,
	}
	if sum.HasCost {
		final := sum.FinalCost
		best := sum.BestCost
		r.FinalCost = &final
		r.BestCost = &best
		r.BestIteration = sum.BestIteration
	}
	if sum.Err != nil {
		r.Error = sum.Err.Error()
	}
	return r
}

// ResultInfo is the listing view of a result: enough to render a table
// without loading measurement traces.
type ResultInfo struct {
	RunID       string    `json:"runId"`
	Calculation string    `json:"calculation"`
	Reason      string    `json:"reason"`
	Iterations  uint64    `json:"iterations"`
	BestCost    *float64  `json:"bestCost,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToInfo converts a full Result to its listing view.
func (r *Result) ToInfo() ResultInfo {
	return ResultInfo{
		RunID:       r.RunID,
		Calculation: r.Spec.Calculation,
		Reason:      r.Reason,
		Iterations:  r.Iterations,
		BestCost:    r.BestCost,
		Timestamp:   r.Timestamp,
	}
}

// Validate checks that a result is complete enough to persist.
func (r *Result) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if runner.ParseReason(r.Reason) == runner.ReasonNone {
		return &ValidationError{Field: "Reason", Reason: "unknown termination reason"}
	}
	if r.Elapsed < 0 {
		return &ValidationError{Field: "Elapsed", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Reason == runner.ReasonStepFailed.String() && r.Error == "" {
		return &ValidationError{Field: "Error", Reason: "required for step_failed results"}
	}
	return nil
}

// ValidationError represents an invalid result record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
