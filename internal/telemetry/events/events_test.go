package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulacra/internal/telemetry/metrics"
)

func TestBusPublishSubscribe(t *testing.T) {
	t.Run("a_subscriber_receives_a_published_event", func(t *testing.T) {
		b := NewBus(metrics.NewNoopProvider())
		sub, err := b.Subscribe(4)
		require.NoError(t, err)

		require.NoError(t, b.Publish(Event{Category: CategoryRun, Type: "started"}))

		ev := <-sub.C()
		assert.Equal(t, CategoryRun, ev.Category)
		assert.False(t, ev.Time.IsZero())
	})

	t.Run("a_full_subscriber_buffer_drops_rather_than_blocks", func(t *testing.T) {
		b := NewBus(metrics.NewNoopProvider())
		sub, err := b.Subscribe(1)
		require.NoError(t, err)

		require.NoError(t, b.Publish(Event{Category: CategoryHealth}))
		require.NoError(t, b.Publish(Event{Category: CategoryHealth}))

		stats := b.Stats()
		assert.Equal(t, uint64(2), stats.Published)
		assert.Equal(t, uint64(1), stats.Dropped)
		<-sub.C()
	})

	t.Run("unsubscribing_closes_the_channel_and_removes_the_subscriber", func(t *testing.T) {
		b := NewBus(metrics.NewNoopProvider())
		sub, err := b.Subscribe(1)
		require.NoError(t, err)

		require.NoError(t, b.Unsubscribe(sub))
		assert.Equal(t, int64(0), b.Stats().Subscribers)

		_, ok := <-sub.C()
		assert.False(t, ok)
	})
}
