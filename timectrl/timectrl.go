package timectrl

import (
	"context"
	"fmt"
	"math"
	"time"
)

// TimePiece discretizes the planning horizon into fixed-length time steps.
// It replaces the process-wide clock of older planners: one TimePiece is
// built at startup and passed to everything that needs step arithmetic.
type TimePiece struct {
	start    time.Time
	step     time.Duration
	numSteps int

	listeners []func(timeIndex int, at time.Time) error
}

// NewTimePiece constructs a TimePiece starting at start.
func NewTimePiece(start time.Time, secondsPerTimeStep float64, numberOfTimeSteps int) (*TimePiece, error) {
	if secondsPerTimeStep <= 0 {
		return nil, fmt.Errorf("seconds per time step must be positive, got %v", secondsPerTimeStep)
	}
	if numberOfTimeSteps <= 0 {
		return nil, fmt.Errorf("number of time steps must be positive, got %d", numberOfTimeSteps)
	}
	return &TimePiece{
		start:    start.UTC(),
		step:     time.Duration(secondsPerTimeStep * float64(time.Second)),
		numSteps: numberOfTimeSteps,
	}, nil
}

// GetSecondsPerTimeStep returns the length of one time step in seconds.
func (tp *TimePiece) GetSecondsPerTimeStep() float64 { return tp.step.Seconds() }

// GetNumberOfTimeSteps returns the number of steps in the horizon.
func (tp *TimePiece) GetNumberOfTimeSteps() int { return tp.numSteps }

// Start returns the epoch of time index 0.
func (tp *TimePiece) Start() time.Time { return tp.start }

// End returns the instant just after the last time step.
func (tp *TimePiece) End() time.Time { return tp.TimeAt(tp.numSteps) }

// TimeAt returns the start time of timeIndex.
func (tp *TimePiece) TimeAt(timeIndex int) time.Time {
	return tp.start.Add(time.Duration(timeIndex) * tp.step)
}

// IndexOf returns the time index containing at, and false when at lies
// outside the horizon.
func (tp *TimePiece) IndexOf(at time.Time) (int, bool) {
	if at.Before(tp.start) {
		return -1, false
	}
	idx := int(math.Floor(float64(at.Sub(tp.start)) / float64(tp.step)))
	if idx >= tp.numSteps {
		return -1, false
	}
	return idx, true
}

// StepsFor converts a duration in seconds to a whole number of time steps,
// rounding up.
func (tp *TimePiece) StepsFor(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds / tp.GetSecondsPerTimeStep()))
}

// StepFunc is called once per time step.
type StepFunc func(ctx context.Context, timeIndex int, at time.Time) error

// AddListener registers a callback invoked for every time step of every
// Run, before the run's own step function.
func (tp *TimePiece) AddListener(fn func(timeIndex int, at time.Time) error) {
	tp.listeners = append(tp.listeners, fn)
}

// Run walks every time step in order on the calling goroutine, invoking
// the listeners and then fn, which may be nil. It stops at the first error
// or when ctx is done.
func (tp *TimePiece) Run(ctx context.Context, fn StepFunc) error {
	for idx := 0; idx < tp.numSteps; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		at := tp.TimeAt(idx)
		for _, l := range tp.listeners {
			if err := l(idx, at); err != nil {
				return fmt.Errorf("time step %d: %w", idx, err)
			}
		}
		if fn == nil {
			continue
		}
		if err := fn(ctx, idx, at); err != nil {
			return fmt.Errorf("time step %d: %w", idx, err)
		}
	}
	return nil
}
