// Package observers provides concrete sinks for the runner's observer bus:
// structured logging, measurement tracing to disk, progress-curve buffering
// and Prometheus metrics. Every sink implements runner.Observer and can be
// attached with any notification frequency.
package observers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/stride/internal/runner"
)

// Slog logs every observed iteration and the final summary through a
// structured logger.
type Slog struct {
	logger *slog.Logger
	level  slog.Level
	name   string
}

// NewSlog creates a logging sink emitting at the given level. Warn and error
// levels are rejected: iteration progress is not an anomaly and must not be
// dressed up as one.
func NewSlog(logger *slog.Logger, level slog.Level, name string) (*Slog, error) {
	if level >= slog.LevelWarn {
		return nil, fmt.Errorf("progress messages may not be logged at %v", level)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger, level: level, name: name}, nil
}

func (s *Slog) OnIteration(m runner.Measurement) error {
	attrs := []any{
		"run", s.name,
		"iteration", m.Iteration,
		"elapsed", m.Elapsed,
		"step_duration", m.StepDuration,
	}
	if m.HasCost {
		attrs = append(attrs, "cost", m.Cost)
	}
	if m.Converged {
		attrs = append(attrs, "converged", true)
	}
	s.logger.Log(context.Background(), s.level, "iteration", attrs...)
	return nil
}

func (s *Slog) OnFinish(sum runner.Summary) error {
	attrs := []any{
		"run", s.name,
		"reason", sum.Reason.String(),
		"iterations", sum.Iterations,
		"elapsed", sum.Elapsed,
	}
	if sum.HasCost {
		attrs = append(attrs, "final_cost", sum.FinalCost, "best_cost", sum.BestCost, "best_iteration", sum.BestIteration)
	}
	if sum.Err != nil {
		attrs = append(attrs, "error", sum.Err)
	}
	s.logger.Log(context.Background(), s.level, "finished", attrs...)
	return nil
}
