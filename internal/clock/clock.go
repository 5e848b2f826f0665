// Package clock provides the simulation clock: current time, global step
// size, and the terminal condition, per spec §4.3. Two concrete shapes are
// polymorphic over the same two-operation interface.
package clock

import "time"

// Clock is the minimal interface the rest of the core depends on.
type Clock interface {
	// CurrentTime returns the current simulation time as a float (unitless
	// step count for StepClock, or seconds-since-epoch for DatetimeClock).
	CurrentTime() float64
	// StepSize returns the current global step size, in the clock's own
	// unit.
	StepSize() float64
	// StepForward advances the clock by StepSize().
	StepForward()
	// Done reports whether the clock has reached or passed stop time.
	Done() bool
}

// StepClock is a unitless integer-step clock: time advances by whole steps
// starting at 0.
type StepClock struct {
	step     int
	stepSize int
	stop     int
}

// NewStepClock constructs a StepClock with the given step size and stop
// step (exclusive of further advancement once reached).
func NewStepClock(stepSize, stop int) *StepClock {
	if stepSize <= 0 {
		stepSize = 1
	}
	return &StepClock{stepSize: stepSize, stop: stop}
}

func (c *StepClock) CurrentTime() float64 { return float64(c.step) }
func (c *StepClock) StepSize() float64    { return float64(c.stepSize) }
func (c *StepClock) StepForward()         { c.step += c.stepSize }
func (c *StepClock) Done() bool           { return c.step >= c.stop }

// DatetimeClock is a wall-clock timestamp-plus-duration clock.
type DatetimeClock struct {
	now      time.Time
	stepSize time.Duration
	stop     time.Time
}

// NewDatetimeClock constructs a DatetimeClock.
func NewDatetimeClock(start time.Time, stepSize time.Duration, stop time.Time) *DatetimeClock {
	if stepSize <= 0 {
		stepSize = 24 * time.Hour
	}
	return &DatetimeClock{now: start, stepSize: stepSize, stop: stop}
}

func (c *DatetimeClock) CurrentTime() float64 { return float64(c.now.Unix()) }
func (c *DatetimeClock) StepSize() float64    { return c.stepSize.Seconds() }
func (c *DatetimeClock) StepForward()         { c.now = c.now.Add(c.stepSize) }
func (c *DatetimeClock) Done() bool           { return !c.now.Before(c.stop) }
func (c *DatetimeClock) Now() time.Time       { return c.now }
