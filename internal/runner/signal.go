package runner

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
)

// Signal is the shared cancel-requested flag for one run.
//
// Two producer-side APIs write the same flag: Trip, safe to call from an
// interrupt handler or any goroutine, and Watch, which bridges a context's
// cooperative cancellation token. The runner reads the flag once per
// iteration boundary, so an in-flight step always completes before
// cancellation takes effect.
//
// Once tripped a signal stays tripped; fresh runs get a fresh signal.
type Signal struct {
	tripped atomic.Bool
}

// NewSignal returns an untripped signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Trip requests cancellation. It is idempotent and safe for concurrent use.
func (s *Signal) Trip() {
	s.tripped.Store(true)
}

// Tripped reports whether cancellation has been requested. Non-blocking.
func (s *Signal) Tripped() bool {
	return s.tripped.Load()
}

// Watch trips the signal when ctx is cancelled. The returned stop function
// releases the watcher goroutine; call it when the run is over.
func (s *Signal) Watch(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Trip()
		case <-done:
		}
	}()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}

// NotifyInterrupt trips the signal on the given OS signals (SIGINT when none
// are named). The returned stop function unregisters the handler.
func NotifyInterrupt(s *Signal, signals ...os.Signal) (stop func()) {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			s.Trip()
		case <-done:
		}
	}()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			signal.Stop(ch)
			close(done)
		}
	}
}
