package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/stride/internal/calc"
	"github.com/cwbudde/stride/internal/observers"
	"github.com/cwbudde/stride/internal/runner"
	"github.com/cwbudde/stride/internal/store"
)

// progressSink feeds runner measurements into the run record and the SSE
// broadcaster. It never fails; the bus would only log the error anyway.
type progressSink struct {
	rm    *RunManager
	runID string
}

func (p *progressSink) OnIteration(m runner.Measurement) error {
	var cost *float64
	if m.HasCost {
		c := m.Cost
		cost = &c
	}

	p.rm.UpdateRun(p.runID, func(r *Run) {
		r.Iterations = m.Iteration + 1
		if cost != nil {
			r.Cost = cost
			if r.BestCost == nil || *cost < *r.BestCost {
				r.BestCost = cost
			}
		}
	})

	run, exists := p.rm.GetRun(p.runID)
	if !exists {
		return nil
	}
	p.rm.broadcaster.Broadcast(ProgressEvent{
		RunID:      p.runID,
		State:      run.State,
		Iterations: run.Iterations,
		Cost:       run.Cost,
		BestCost:   run.BestCost,
		Timestamp:  time.Now(),
	})
	return nil
}

func (p *progressSink) OnFinish(runner.Summary) error {
	return nil
}

// executeRun drives a managed run to completion in the background: it builds
// the runner options from the request, attaches the progress and trace sinks,
// runs the named calculation, and persists the result.
func executeRun(ctx context.Context, rm *RunManager, st store.Store, dataDir, runID string) error {
	run, exists := rm.GetRun(runID)
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}
	req := run.Request

	runFn, err := calc.Lookup(req.Calculation)
	if err != nil {
		markRunFailed(rm, runID, err)
		return err
	}

	var timeBudget time.Duration
	if req.TimeBudget != "" {
		timeBudget, err = time.ParseDuration(req.TimeBudget)
		if err != nil {
			markRunFailed(rm, runID, fmt.Errorf("invalid time budget: %w", err))
			return err
		}
	}

	broadcastEvery := req.BroadcastEvery
	if broadcastEvery == 0 {
		broadcastEvery = 10
	}

	opts := []runner.Option{
		// The server only needs the summary; keep one measurement around.
		runner.WithMeasurementWindow(1),
		runner.WithObserver(&progressSink{rm: rm, runID: runID}, runner.Every(broadcastEvery)),
	}
	if req.MaxIterations > 0 {
		opts = append(opts, runner.WithMaxIterations(req.MaxIterations))
	}
	if req.TargetCost != nil {
		opts = append(opts, runner.WithTargetCost(*req.TargetCost))
	}
	if timeBudget > 0 {
		opts = append(opts, runner.WithTimeBudget(timeBudget))
	}

	var traceWriter *store.TraceWriter
	if req.Trace {
		traceWriter, err = store.NewTraceWriter(dataDir, runID, false)
		if err != nil {
			markRunFailed(rm, runID, err)
			return err
		}
		defer traceWriter.Close()
		opts = append(opts, runner.WithObserver(observers.NewTrace(traceWriter), runner.Always()))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	rm.RegisterCancel(runID, cancel)
	defer rm.Forget(runID)

	// The run may have been cancelled while still pending.
	if current, _ := rm.GetRun(runID); current.State == StateCancelled {
		return nil
	}

	rm.UpdateRun(runID, func(r *Run) {
		r.State = StateRunning
		r.StartTime = time.Now()
	})

	slog.Info("Starting run", "run_id", runID, "calculation", req.Calculation)

	sum, err := runFn(runCtx, req.Params, opts...)
	if err != nil {
		markRunFailed(rm, runID, err)
		return err
	}

	endTime := time.Now()
	state := stateFromReason(sum.Reason)
	rm.UpdateRun(runID, func(r *Run) {
		r.State = state
		r.Iterations = sum.Iterations
		r.Reason = sum.Reason.String()
		r.EndTime = &endTime
		if sum.HasCost {
			final := sum.FinalCost
			best := sum.BestCost
			r.Cost = &final
			r.BestCost = &best
		}
		if sum.Err != nil {
			r.Error = sum.Err.Error()
		}
	})

	result := store.NewResult(runID, sum, store.RunSpec{
		Calculation:   req.Calculation,
		MaxIterations: req.MaxIterations,
		TargetCost:    req.TargetCost,
		TimeBudget:    timeBudget,
		Seed:          req.Params.Seed,
	})
	if err := st.SaveResult(runID, result); err != nil {
		slog.Error("Failed to persist run result", "run_id", runID, "error", err)
	}

	slog.Info("Run finished",
		"run_id", runID,
		"reason", sum.Reason,
		"iterations", sum.Iterations,
		"elapsed", sum.Elapsed,
	)

	// Broadcast the final event so stream clients see the terminal state.
	final, _ := rm.GetRun(runID)
	rm.broadcaster.Broadcast(ProgressEvent{
		RunID:      runID,
		State:      final.State,
		Iterations: final.Iterations,
		Cost:       final.Cost,
		BestCost:   final.BestCost,
		Reason:     final.Reason,
		Timestamp:  time.Now(),
	})

	return nil
}

// markRunFailed marks a run as failed with an error message
func markRunFailed(rm *RunManager, runID string, err error) {
	endTime := time.Now()
	rm.UpdateRun(runID, func(r *Run) {
		r.State = StateFailed
		r.Error = err.Error()
		r.EndTime = &endTime
	})
	slog.Error("Run failed", "run_id", runID, "error", err)
}
