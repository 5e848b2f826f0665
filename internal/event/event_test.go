package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDispatchOrder(t *testing.T) {
	t.Run("listeners_fire_in_priority_then_registration_order", func(t *testing.T) {
		m := NewManager(func() (float64, float64) { return 3.0, 1.0 })
		var seen []string

		require.NoError(t, m.RegisterListener("time_step", 7, func(Event) { seen = append(seen, "low-priority") }))
		require.NoError(t, m.RegisterListener("time_step", 1, func(Event) { seen = append(seen, "high-priority-first") }))
		require.NoError(t, m.RegisterListener("time_step", 1, func(Event) { seen = append(seen, "high-priority-second") }))

		m.GetEmitter("time_step")([]int{0, 1}, nil)

		assert.Equal(t, []string{"high-priority-first", "high-priority-second", "low-priority"}, seen)
	})

	t.Run("emitted_event_carries_clock_time_and_step_size", func(t *testing.T) {
		m := NewManager(func() (float64, float64) { return 3.0, 1.0 })
		var got Event
		require.NoError(t, m.RegisterListener("time_step", 5, func(e Event) { got = e }))

		m.GetEmitter("time_step")([]int{0}, map[string]interface{}{"k": "v"})

		assert.Equal(t, 3.0, got.Time)
		assert.Equal(t, 1.0, got.StepSize)
		assert.Equal(t, []int{0}, got.Index)
		assert.Equal(t, "v", got.UserData["k"])
	})

	t.Run("priority_out_of_range_is_rejected", func(t *testing.T) {
		m := NewManager(nil)
		err := m.RegisterListener("time_step", 10, func(Event) {})
		assert.Error(t, err)
	})

	t.Run("channel_with_no_listeners_emits_without_effect", func(t *testing.T) {
		m := NewManager(nil)
		assert.NotPanics(t, func() { m.GetEmitter("nothing_registered")([]int{0}, nil) })
	})
}
