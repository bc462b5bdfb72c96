package runner

import "time"

// Summary is the type-independent view of a run outcome. It is what observer
// sinks receive on finish and what the result store persists; every field of
// the full Outcome that does not depend on the state type appears here.
type Summary struct {
	// Reason is the single termination reason for the run.
	Reason Reason `json:"reason"`

	// Err is the step failure cause when Reason is ReasonStepFailed, else nil.
	Err error `json:"-"`

	// Iterations is the number of completed iterations.
	Iterations uint64 `json:"iterations"`

	// Elapsed is the total wall time of the run.
	Elapsed time.Duration `json:"elapsed"`

	// FinalCost is the cost reported by the last completed iteration.
	FinalCost float64 `json:"finalCost"`

	// BestCost is the lowest cost observed over the whole run.
	BestCost float64 `json:"bestCost"`

	// BestIteration is the iteration index where BestCost was observed.
	BestIteration uint64 `json:"bestIteration"`

	// HasCost marks whether any iteration reported a cost at all.
	HasCost bool `json:"hasCost"`
}

// Outcome is the sole artifact a run produces: the final state, the
// termination reason, timing totals and the retained measurement window.
// It is assembled once at loop exit and immutable thereafter.
type Outcome[S any] struct {
	// State is the last committed state. On step failure this is the state
	// before the failing step; the failing step's partial result is discarded.
	State S

	Summary

	// Measurements is the retained window of per-iteration records, in strict
	// iteration order. With an unbounded window it is the complete sequence.
	Measurements []Measurement
}
