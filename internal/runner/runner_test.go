package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countdown is the end-to-end step from the design notes: it increments an
// integer state by one and reports cost = 100 - state.
func countdown() Step[int] {
	return StepFunc[int](func(_ context.Context, state int) (int, Report, error) {
		state++
		return state, Cost(float64(100 - state)), nil
	})
}

// fakeClock advances a fixed amount on every reading.
type fakeClock struct {
	now  time.Time
	tick time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.tick)
	return t
}

func TestMaxIterationsReachedExactly(t *testing.T) {
	const n = 25
	r, err := New(0, WithMaxIterations(n))
	require.NoError(t, err)

	out := r.Run(context.Background(), countdown())

	assert.Equal(t, ReasonMaxIterationsReached, out.Reason)
	assert.Equal(t, uint64(n), out.Iterations)
	require.Len(t, out.Measurements, n)
	for i, m := range out.Measurements {
		assert.Equal(t, uint64(i), m.Iteration)
	}
}

func TestTargetCostEndToEnd(t *testing.T) {
	r, err := New(0, WithTargetCost(0))
	require.NoError(t, err)

	out := r.Run(context.Background(), countdown())

	assert.Equal(t, ReasonTargetCostReached, out.Reason)
	assert.Equal(t, 100, out.State)
	assert.Equal(t, uint64(100), out.Iterations)
	assert.Equal(t, 0.0, out.FinalCost)
	assert.Equal(t, 0.0, out.BestCost)
	assert.Equal(t, uint64(99), out.BestIteration)
}

func TestMaxIterationsEndToEnd(t *testing.T) {
	r, err := New(0, WithMaxIterations(10))
	require.NoError(t, err)

	out := r.Run(context.Background(), countdown())

	assert.Equal(t, ReasonMaxIterationsReached, out.Reason)
	assert.Equal(t, 10, out.State)
	assert.Equal(t, uint64(10), out.Iterations)
}

// When the iteration cap and the target cost become true in the same
// iteration, the target outranks the cap.
func TestSimultaneousConditionsFollowPrecedence(t *testing.T) {
	for i := 0; i < 5; i++ {
		r, err := New(0, WithMaxIterations(100), WithTargetCost(0))
		require.NoError(t, err)

		out := r.Run(context.Background(), countdown())

		assert.Equal(t, ReasonTargetCostReached, out.Reason)
		assert.Equal(t, uint64(100), out.Iterations)
	}
}

func TestCancelBeforeFirstIteration(t *testing.T) {
	r, err := New(42)
	require.NoError(t, err)
	r.Signal().Trip()

	stepped := false
	out := r.Run(context.Background(), StepFunc[int](func(_ context.Context, s int) (int, Report, error) {
		stepped = true
		return s, Report{}, nil
	}))

	assert.False(t, stepped, "no step may execute after a tripped boundary")
	assert.Equal(t, ReasonCancelled, out.Reason)
	assert.Equal(t, uint64(0), out.Iterations)
	assert.Equal(t, 42, out.State)
}

func TestCancelMidRunStopsAtBoundary(t *testing.T) {
	r, err := New(0)
	require.NoError(t, err)

	sig := r.Signal()
	out := r.Run(context.Background(), StepFunc[int](func(_ context.Context, s int) (int, Report, error) {
		s++
		if s == 3 {
			// Tripped while the step is in flight; the step still completes.
			sig.Trip()
		}
		return s, Cost(float64(s)), nil
	}))

	assert.Equal(t, ReasonCancelled, out.Reason)
	assert.Equal(t, uint64(3), out.Iterations)
	assert.Equal(t, 3, out.State)
}

func TestContextCancellationIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, err := New(0)
	require.NoError(t, err)

	out := r.Run(ctx, StepFunc[int](func(_ context.Context, s int) (int, Report, error) {
		s++
		if s == 5 {
			cancel()
		}
		return s, Report{}, nil
	}))

	assert.Equal(t, ReasonCancelled, out.Reason)
	assert.Equal(t, uint64(5), out.Iterations)
}

func TestStepFailureKeepsLastGoodState(t *testing.T) {
	boom := errors.New("numerical blowup")
	r, err := New(0, WithMaxIterations(100))
	require.NoError(t, err)

	out := r.Run(context.Background(), StepFunc[int](func(_ context.Context, s int) (int, Report, error) {
		if s == 5 {
			return 0, Report{}, boom
		}
		return s + 1, Cost(float64(s)), nil
	}))

	assert.Equal(t, ReasonStepFailed, out.Reason)
	require.ErrorIs(t, out.Err, boom)
	assert.Equal(t, 5, out.State, "failing step must not commit a partial state")
	assert.Equal(t, uint64(5), out.Iterations)
}

func TestConvergedOutranksSoftLimits(t *testing.T) {
	r, err := New(0, WithMaxIterations(3), WithTargetCost(0))
	require.NoError(t, err)

	out := r.Run(context.Background(), StepFunc[int](func(_ context.Context, s int) (int, Report, error) {
		return s + 1, Converged(0), nil
	}))

	assert.Equal(t, ReasonConverged, out.Reason)
	assert.Equal(t, uint64(1), out.Iterations)
}

func TestTimeBudgetCheckedAtBoundary(t *testing.T) {
	// Each clock reading advances 10ms and the loop reads the clock a fixed
	// number of times per iteration, so the budget trips deterministically.
	clock := &fakeClock{now: time.Unix(0, 0), tick: 10 * time.Millisecond}
	r, err := New(0, WithTimeBudget(100*time.Millisecond), WithClock(clock))
	require.NoError(t, err)

	out := r.Run(context.Background(), countdown())

	assert.Equal(t, ReasonTimeBudgetExceeded, out.Reason)
	assert.Greater(t, out.Elapsed, 100*time.Millisecond)
	assert.NotZero(t, out.Iterations)
}

type recordingObserver struct {
	iterations []uint64
	finished   int
	failWith   error
	panicWith  any
}

func (o *recordingObserver) OnIteration(m Measurement) error {
	o.iterations = append(o.iterations, m.Iteration)
	if o.panicWith != nil {
		panic(o.panicWith)
	}
	return o.failWith
}

func (o *recordingObserver) OnFinish(Summary) error {
	o.finished++
	return o.failWith
}

func TestFailingObserverDoesNotChangeOutcome(t *testing.T) {
	run := func(extra ...Option) *Outcome[int] {
		opts := append([]Option{WithMaxIterations(10)}, extra...)
		r, err := New(0, opts...)
		require.NoError(t, err)
		return r.Run(context.Background(), countdown())
	}

	clean := run()
	withErr := run(WithObserver(&recordingObserver{failWith: errors.New("sink down")}, Always()))
	withPanic := run(WithObserver(&recordingObserver{panicWith: "sink panicked"}, Always()))

	for _, out := range []*Outcome[int]{withErr, withPanic} {
		assert.Equal(t, clean.Reason, out.Reason)
		assert.Equal(t, clean.Iterations, out.Iterations)
		assert.Equal(t, clean.State, out.State)
	}
}

func TestObserverFrequencies(t *testing.T) {
	always := &recordingObserver{}
	everyThird := &recordingObserver{}
	last := &recordingObserver{}
	never := &recordingObserver{}

	r, err := New(0,
		WithMaxIterations(9),
		WithObserver(always, Always()),
		WithObserver(everyThird, Every(3)),
		WithObserver(last, Last()),
		WithObserver(never, Never()),
	)
	require.NoError(t, err)
	r.Run(context.Background(), countdown())

	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8}, always.iterations)
	assert.Equal(t, []uint64{0, 3, 6}, everyThird.iterations)
	assert.Empty(t, last.iterations)
	assert.Equal(t, 1, last.finished)
	assert.Empty(t, never.iterations)
	assert.Zero(t, never.finished)
}

func TestMeasurementWindowKeepsMostRecent(t *testing.T) {
	r, err := New(0, WithMaxIterations(20), WithMeasurementWindow(5))
	require.NoError(t, err)

	out := r.Run(context.Background(), countdown())

	require.Len(t, out.Measurements, 5)
	for i, m := range out.Measurements {
		assert.Equal(t, uint64(15+i), m.Iteration)
	}
}

func TestConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		opt  Option
	}{
		{"zero max iterations", WithMaxIterations(0)},
		{"non-positive time budget", WithTimeBudget(-time.Second)},
		{"negative window", WithMeasurementWindow(-1)},
		{"nil observer", WithObserver(nil, Always())},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(0, tc.opt)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}
