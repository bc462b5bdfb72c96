package runner

import (
	"fmt"
	"log/slog"
)

// Observer receives per-iteration measurements and the final run summary.
// Both callbacks are invoked synchronously from the loop goroutine, in
// registration order. Returning an error (or panicking) never aborts the
// run: the failure is logged and the loop proceeds.
type Observer interface {
	OnIteration(m Measurement) error
	OnFinish(s Summary) error
}

type freqKind int

const (
	freqNever freqKind = iota
	freqAlways
	freqEvery
	freqLast
)

// Frequency controls how often an observer sees iteration events.
type Frequency struct {
	kind freqKind
	n    uint64
}

// Never suppresses all notifications, including the final one.
func Never() Frequency { return Frequency{kind: freqNever} }

// Always delivers every iteration and the final summary.
func Always() Frequency { return Frequency{kind: freqAlways} }

// Every delivers every n-th iteration (and the final summary).
// Every(0) behaves like Always.
func Every(n uint64) Frequency {
	if n <= 1 {
		return Always()
	}
	return Frequency{kind: freqEvery, n: n}
}

// Last delivers only the final summary.
func Last() Frequency { return Frequency{kind: freqLast} }

func (f Frequency) emitIteration(iter uint64) bool {
	switch f.kind {
	case freqAlways:
		return true
	case freqEvery:
		return iter%f.n == 0
	default:
		return false
	}
}

func (f Frequency) emitFinish() bool {
	return f.kind != freqNever
}

// ObserverError wraps a sink failure. It is logged and otherwise swallowed;
// it never reaches the caller of Run.
type ObserverError struct {
	Sink  string
	Cause error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("observer %s: %v", e.Sink, e.Cause)
}

func (e *ObserverError) Unwrap() error { return e.Cause }

type observerEntry struct {
	sink Observer
	freq Frequency
}

// bus fans out events to the registered sinks. Each notification is isolated:
// one sink failing or panicking does not stop delivery to the others.
type bus struct {
	entries []observerEntry
	logger  *slog.Logger
}

func (b *bus) iteration(m Measurement) {
	for _, e := range b.entries {
		if !e.freq.emitIteration(m.Iteration) {
			continue
		}
		if err := notify(func() error { return e.sink.OnIteration(m) }); err != nil {
			b.report(e.sink, err)
		}
	}
}

func (b *bus) finish(s Summary) {
	for _, e := range b.entries {
		if !e.freq.emitFinish() {
			continue
		}
		if err := notify(func() error { return e.sink.OnFinish(s) }); err != nil {
			b.report(e.sink, err)
		}
	}
}

func (b *bus) report(sink Observer, err error) {
	oe := &ObserverError{Sink: fmt.Sprintf("%T", sink), Cause: err}
	b.logger.Warn("observer failed", "sink", oe.Sink, "error", oe.Cause)
}

// notify runs fn, converting a panic into an error.
func notify(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
