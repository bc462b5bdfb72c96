package store

// Store defines the interface for run result persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil on success
//   - Return ErrNotFound if a result doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves the result for the given run, overwriting
	// any previous result with the same runID. Implementations should use an
	// atomic write strategy (temp file + rename) so a crash cannot leave a
	// half-written record behind.
	SaveResult(runID string, result *Result) error

	// LoadResult retrieves the result for the given run.
	// Returns ErrNotFound if no result exists for this runID.
	LoadResult(runID string) (*Result, error)

	// ListResults returns metadata for all stored results. The slice may be
	// empty if nothing has been persisted yet.
	ListResults() ([]ResultInfo, error)

	// DeleteResult removes the result and all associated artifacts for the
	// given run, including the measurement trace and any progress curves.
	// Returns ErrNotFound if no result exists for this runID.
	DeleteResult(runID string) error
}

// ErrNotFound is returned when a requested run has no stored data.
// Use errors.Is(err, ErrNotFound) to check for it.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run record.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
