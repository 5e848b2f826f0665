package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock(t *testing.T) {
	t.Run("advances_by_step_size_and_reports_done_at_stop", func(t *testing.T) {
		c := NewStepClock(2, 6)
		assert.Equal(t, float64(0), c.CurrentTime())
		assert.False(t, c.Done())

		c.StepForward()
		assert.Equal(t, float64(2), c.CurrentTime())
		assert.False(t, c.Done())

		c.StepForward()
		c.StepForward()
		assert.Equal(t, float64(6), c.CurrentTime())
		assert.True(t, c.Done())
	})

	t.Run("a_non_positive_step_size_falls_back_to_one", func(t *testing.T) {
		c := NewStepClock(0, 3)
		assert.Equal(t, float64(1), c.StepSize())
	})
}

func TestDatetimeClock(t *testing.T) {
	t.Run("advances_by_duration_and_reports_done_at_or_past_stop", func(t *testing.T) {
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		stop := start.Add(48 * time.Hour)
		c := NewDatetimeClock(start, 24*time.Hour, stop)

		assert.False(t, c.Done())
		c.StepForward()
		assert.Equal(t, start.Add(24*time.Hour), c.Now())
		assert.False(t, c.Done())
		c.StepForward()
		assert.True(t, c.Done())
	})

	t.Run("a_non_positive_step_size_falls_back_to_a_day", func(t *testing.T) {
		start := time.Now()
		c := NewDatetimeClock(start, 0, start)
		assert.Equal(t, (24 * time.Hour).Seconds(), c.StepSize())
	})
}
