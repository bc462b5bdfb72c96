package server

import (
	"context"
	"testing"
	"time"

	"github.com/cwbudde/stride/internal/calc"
	"github.com/cwbudde/stride/internal/store"
)

func newTestStore(t *testing.T) (*store.FSStore, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return st, dir
}

func TestExecuteRun_Completes(t *testing.T) {
	st, dir := newTestStore(t)
	rm := NewRunManager()

	run := rm.CreateRun(RunRequest{
		Calculation:   "decay",
		MaxIterations: 25,
		Params:        calc.DefaultParams(),
	})

	if err := executeRun(context.Background(), rm, st, dir, run.ID); err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	got, _ := rm.GetRun(run.ID)
	if got.State != StateCompleted {
		t.Errorf("Expected completed state, got %s", got.State)
	}
	if got.Iterations != 25 {
		t.Errorf("Expected 25 iterations, got %d", got.Iterations)
	}
	if got.Reason != "max_iterations_reached" {
		t.Errorf("Expected max_iterations_reached, got %s", got.Reason)
	}
	if got.EndTime == nil {
		t.Error("EndTime should be set")
	}

	// Result must be persisted.
	result, err := st.LoadResult(run.ID)
	if err != nil {
		t.Fatalf("Failed to load result: %v", err)
	}
	if result.Iterations != 25 {
		t.Errorf("Persisted result has %d iterations, want 25", result.Iterations)
	}
	if result.Spec.Calculation != "decay" {
		t.Errorf("Persisted spec names %s, want decay", result.Spec.Calculation)
	}
}

func TestExecuteRun_WritesTrace(t *testing.T) {
	st, dir := newTestStore(t)
	rm := NewRunManager()

	run := rm.CreateRun(RunRequest{
		Calculation:   "decay",
		MaxIterations: 10,
		Trace:         true,
		Params:        calc.DefaultParams(),
	})

	if err := executeRun(context.Background(), rm, st, dir, run.ID); err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	tr, err := store.NewTraceReader(dir, run.ID)
	if err != nil {
		t.Fatalf("Failed to open trace: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("Expected 10 trace entries, got %d", len(entries))
	}
}

func TestExecuteRun_Cancelled(t *testing.T) {
	st, dir := newTestStore(t)
	rm := NewRunManager()

	run := rm.CreateRun(RunRequest{
		Calculation: "decay",
		// No iteration cap; only cancellation ends this run.
		TimeBudget: "1h",
		Params:     calc.DefaultParams(),
	})

	done := make(chan error, 1)
	go func() {
		done <- executeRun(context.Background(), rm, st, dir, run.ID)
	}()

	// Wait for the worker to register its cancel func, then cancel.
	deadline := time.After(5 * time.Second)
	for {
		got, _ := rm.GetRun(run.ID)
		if got.State == StateRunning {
			if found, err := rm.Cancel(run.ID); found && err == nil {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("Run never reached the running state")
		case <-time.After(time.Millisecond):
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	got, _ := rm.GetRun(run.ID)
	if got.State != StateCancelled {
		t.Errorf("Expected cancelled state, got %s", got.State)
	}
	if got.Reason != "cancelled" {
		t.Errorf("Expected cancelled reason, got %s", got.Reason)
	}
}

func TestExecuteRun_UnknownCalculation(t *testing.T) {
	st, dir := newTestStore(t)
	rm := NewRunManager()

	run := rm.CreateRun(RunRequest{Calculation: "nonsense", MaxIterations: 5})

	if err := executeRun(context.Background(), rm, st, dir, run.ID); err == nil {
		t.Fatal("Expected error for unknown calculation")
	}

	got, _ := rm.GetRun(run.ID)
	if got.State != StateFailed {
		t.Errorf("Expected failed state, got %s", got.State)
	}
	if got.Error == "" {
		t.Error("Error message should be set")
	}
}
