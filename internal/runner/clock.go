package runner

import "time"

// Clock abstracts the time source so tests can drive the loop deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real time source. time.Now carries a monotonic
// reading, so durations derived from it are immune to wall-clock adjustments.
func SystemClock() Clock {
	return systemClock{}
}

// stopwatch measures elapsed time from an arbitrary start point.
type stopwatch struct {
	clock Clock
	start time.Time
}

func startStopwatch(c Clock) stopwatch {
	return stopwatch{clock: c, start: c.Now()}
}

func (s stopwatch) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}
