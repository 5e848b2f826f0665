package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTelProvider(t *testing.T) {
	t.Run("instruments_can_be_created_and_recorded_into_without_error", func(t *testing.T) {
		p := NewOTelProvider(OTelProviderOptions{ServiceName: "simulacra-test"})

		counter := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "ticks", Labels: []string{"phase"}}})
		gauge := p.NewGauge(GaugeOpts{CommonOpts: CommonOpts{Name: "population_size"}})
		hist := p.NewHistogram(HistogramOpts{CommonOpts: CommonOpts{Name: "draw_latency"}, Buckets: []float64{0.1, 1, 10}})

		assert.NotPanics(t, func() {
			counter.Inc(1, "time_step")
			gauge.Set(100)
			gauge.Add(-5)
			hist.Observe(0.5)
		})
		require.NoError(t, p.Health(context.Background()))
	})

	t.Run("a_default_service_name_is_used_when_none_is_given", func(t *testing.T) {
		p := NewOTelProvider(OTelProviderOptions{})
		assert.NotNil(t, p)
	})
}
