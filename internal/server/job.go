package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/stride/internal/calc"
)

// RunState represents the current state of a managed run
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// RunRequest is the JSON body accepted by POST /api/v1/runs
type RunRequest struct {
	Calculation    string      `json:"calculation"`
	MaxIterations  uint64      `json:"maxIterations"`
	TargetCost     *float64    `json:"targetCost,omitempty"`
	TimeBudget     string      `json:"timeBudget,omitempty"`
	BroadcastEvery uint64      `json:"broadcastEvery"`
	Trace          bool        `json:"trace"`
	Params         calc.Params `json:"params"`
}

// Run represents one managed run and its live progress
type Run struct {
	ID         string     `json:"id"`
	State      RunState   `json:"state"`
	Request    RunRequest `json:"request"`
	Iterations uint64     `json:"iterations"`
	Cost       *float64   `json:"cost,omitempty"`
	BestCost   *float64   `json:"bestCost,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunManager manages the lifecycle of runs. Cancellation goes through the
// per-run context so the runner observes it at the next iteration boundary.
type RunManager struct {
	mu          sync.RWMutex
	runs        map[string]*Run
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewRunManager creates a new RunManager
func NewRunManager() *RunManager {
	return &RunManager{
		runs:        make(map[string]*Run),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateRun registers a new run in the pending state
func (rm *RunManager) CreateRun(req RunRequest) *Run {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run := &Run{
		ID:        uuid.New().String(),
		State:     StatePending,
		Request:   req,
		StartTime: time.Now(),
	}

	rm.runs[run.ID] = run
	return run
}

// GetRun retrieves a run by ID. The returned copy is safe to read without
// holding the manager lock.
func (rm *RunManager) GetRun(id string) (Run, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	run, exists := rm.runs[id]
	if !exists {
		return Run{}, false
	}
	return *run, true
}

// ListRuns returns a snapshot of all runs
func (rm *RunManager) ListRuns() []Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	runs := make([]Run, 0, len(rm.runs))
	for _, run := range rm.runs {
		runs = append(runs, *run)
	}
	return runs
}

// UpdateRun atomically updates a run using the provided function
func (rm *RunManager) UpdateRun(id string, updateFn func(*Run)) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run, exists := rm.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}

	updateFn(run)
	return nil
}

// RegisterCancel stores the cancel function for a running run
func (rm *RunManager) RegisterCancel(id string, cancel context.CancelFunc) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.cancels[id] = cancel
}

// Cancel requests cancellation of a run. It returns false when the run does
// not exist and an error when the run has already finished.
func (rm *RunManager) Cancel(id string) (bool, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run, exists := rm.runs[id]
	if !exists {
		return false, nil
	}
	if run.State != StatePending && run.State != StateRunning {
		return true, fmt.Errorf("run already finished: %s", id)
	}

	if cancel, ok := rm.cancels[id]; ok {
		cancel()
		delete(rm.cancels, id)
	} else {
		// Worker has not started yet; mark directly.
		run.State = StateCancelled
	}
	return true, nil
}

// Forget drops the cancel registration once a run has finished
func (rm *RunManager) Forget(id string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.cancels, id)
}

// GetRunningRuns returns all runs currently in the running state
func (rm *RunManager) GetRunningRuns() []Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	running := make([]Run, 0)
	for _, run := range rm.runs {
		if run.State == StateRunning {
			running = append(running, *run)
		}
	}
	return running
}
