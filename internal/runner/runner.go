// Package runner drives an arbitrary iterative computation to completion.
//
// The caller supplies an initial state and a Step; the runner supplies the
// loop around it: iteration bookkeeping, monotonic timing, termination-reason
// resolution, observer fan-out and cooperative cancellation. The runner never
// inspects the state beyond what the step explicitly reports.
package runner

import (
	"context"
	"log/slog"
)

// Step is the user-supplied transition. It consumes the current state and
// returns the next state plus an optional report, or a failure cause. A step
// must yield either a complete next state or an error, never a partial
// update; on error the runner keeps the previous state.
type Step[S any] interface {
	Next(ctx context.Context, state S) (S, Report, error)
}

// StepFunc adapts a plain function to the Step interface.
type StepFunc[S any] func(ctx context.Context, state S) (S, Report, error)

func (f StepFunc[S]) Next(ctx context.Context, state S) (S, Report, error) {
	return f(ctx, state)
}

// Runner owns one run: its state, clock, cancellation signal and termination
// policy. A Runner is single-use; build a fresh one per run.
type Runner[S any] struct {
	state  S
	cfg    settings
	signal *Signal
	clock  Clock
	obs    bus
}

// New constructs a Runner over the initial state. It fails only with a
// ConfigError; once constructed, Run always yields a complete outcome.
func New[S any](initial S, opts ...Option) (*Runner[S], error) {
	cfg := settings{
		clock:  SystemClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.signal == nil {
		cfg.signal = NewSignal()
	}
	return &Runner[S]{
		state:  initial,
		cfg:    cfg,
		signal: cfg.signal,
		clock:  cfg.clock,
		obs:    bus{entries: cfg.observers, logger: cfg.logger},
	}, nil
}

// Signal returns the run's cancellation signal, so callers can trip it from
// another goroutine or wire it to an interrupt handler.
func (r *Runner[S]) Signal() *Signal {
	return r.signal
}

// Run executes the loop to completion and returns the outcome. It blocks the
// calling goroutine; cancelling ctx is the cooperative path into the same
// flag an interrupt handler would trip. Algorithm failures do not panic or
// propagate: a failing step terminates the run with ReasonStepFailed and the
// last good state.
//
// Per iteration, in order: the step advances the state, the clock records the
// iteration duration, the cancellation flag is re-read, the measurement goes
// to the observer bus, and the termination policy is evaluated.
func (r *Runner[S]) Run(ctx context.Context, step Step[S]) *Outcome[S] {
	sw := startStopwatch(r.clock)
	pol := newPolicy(&r.cfg)

	var (
		iterations   uint64
		measurements []Measurement
		finalCost    float64
		bestCost     float64
		bestIter     uint64
		hasCost      bool
		stepErr      error
		reason       Reason
	)

	for {
		// Boundary check: both cancellation producers land on one flag, so a
		// signal tripped at any earlier point stops the run before the next
		// step executes.
		if ctx.Err() != nil {
			r.signal.Trip()
		}
		if r.signal.Tripped() {
			reason = pol.stop(ReasonCancelled)
			break
		}

		stepStart := r.clock.Now()
		next, report, err := step.Next(ctx, r.state)
		stepDur := r.clock.Now().Sub(stepStart)
		elapsed := sw.Elapsed()

		if err != nil {
			stepErr = err
			reason = pol.stop(ReasonStepFailed)
			break
		}

		// Commit: the state is replaced, never mutated in place.
		r.state = next

		m := Measurement{
			Iteration:    iterations,
			Elapsed:      elapsed,
			StepDuration: stepDur,
			Cost:         report.Cost,
			HasCost:      report.HasCost,
			Converged:    report.Converged,
			Timestamp:    r.clock.Now(),
		}
		iterations++

		if report.HasCost {
			finalCost = report.Cost
			if !hasCost || report.Cost < bestCost {
				bestCost = report.Cost
				bestIter = m.Iteration
			}
			hasCost = true
		}

		if r.cfg.window > 0 && len(measurements) >= r.cfg.window {
			measurements = measurements[1:]
		}
		measurements = append(measurements, m)

		if ctx.Err() != nil {
			r.signal.Trip()
		}
		r.obs.iteration(m)

		var stopped bool
		reason, stopped = pol.evaluate(conditions{
			cancelled:  r.signal.Tripped(),
			report:     report,
			elapsed:    sw.Elapsed(),
			iterations: iterations,
		})
		if stopped {
			break
		}
	}

	outcome := &Outcome[S]{
		State: r.state,
		Summary: Summary{
			Reason:        reason,
			Err:           stepErr,
			Iterations:    iterations,
			Elapsed:       sw.Elapsed(),
			FinalCost:     finalCost,
			BestCost:      bestCost,
			BestIteration: bestIter,
			HasCost:       hasCost,
		},
		Measurements: measurements,
	}
	r.obs.finish(outcome.Summary)
	return outcome
}
