package runner

import (
	"log/slog"
	"math"
	"time"
)

// ConfigError reports an invalid or degenerate construction option.
// It is the only error New can return; a constructed runner never fails.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Option + ": " + e.Reason
}

type settings struct {
	maxIterations    uint64
	hasMaxIterations bool
	targetCost       float64
	hasTargetCost    bool
	timeBudget       time.Duration
	hasTimeBudget    bool
	window           int
	observers        []observerEntry
	clock            Clock
	signal           *Signal
	logger           *slog.Logger
}

// Option configures a Runner at construction time. There is no runtime
// reconfiguration mid-run.
type Option func(*settings)

// WithMaxIterations caps the number of iterations. Zero is rejected as
// degenerate; omit the option for an unbounded run.
func WithMaxIterations(n uint64) Option {
	return func(s *settings) {
		s.maxIterations = n
		s.hasMaxIterations = true
	}
}

// WithTargetCost stops the run once a reported cost is at or below target.
func WithTargetCost(target float64) Option {
	return func(s *settings) {
		s.targetCost = target
		s.hasTargetCost = true
	}
}

// WithTimeBudget stops the run once elapsed time exceeds the budget.
// The budget is checked only at iteration boundaries, so a long step can
// overshoot it; the overshoot is an accepted latency bound, not a hard
// real-time guarantee.
func WithTimeBudget(d time.Duration) Option {
	return func(s *settings) {
		s.timeBudget = d
		s.hasTimeBudget = true
	}
}

// WithMeasurementWindow bounds how many of the most recent measurements the
// outcome retains. Zero keeps the full sequence.
func WithMeasurementWindow(n int) Option {
	return func(s *settings) { s.window = n }
}

// WithObserver registers a sink at the given frequency. Sinks are notified
// in registration order.
func WithObserver(o Observer, f Frequency) Option {
	return func(s *settings) {
		s.observers = append(s.observers, observerEntry{sink: o, freq: f})
	}
}

// WithClock replaces the time source, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithSignal attaches an externally owned cancellation signal, for callers
// that need to trip it from an interrupt handler set up before the run.
func WithSignal(sig *Signal) Option {
	return func(s *settings) { s.signal = sig }
}

// WithLogger sets the logger used for observer failure reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func (s *settings) validate() error {
	if s.hasMaxIterations && s.maxIterations == 0 {
		return &ConfigError{Option: "max-iterations", Reason: "must be positive"}
	}
	if s.hasTargetCost && math.IsNaN(s.targetCost) {
		return &ConfigError{Option: "target-cost", Reason: "must not be NaN"}
	}
	if s.hasTimeBudget && s.timeBudget <= 0 {
		return &ConfigError{Option: "time-budget", Reason: "must be positive"}
	}
	if s.window < 0 {
		return &ConfigError{Option: "measurement-window", Reason: "must not be negative"}
	}
	for _, e := range s.observers {
		if e.sink == nil {
			return &ConfigError{Option: "observer", Reason: "sink must not be nil"}
		}
	}
	return nil
}
