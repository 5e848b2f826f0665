package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusProvider(t *testing.T) {
	t.Run("a_counter_accumulates_across_increments", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		p := NewPrometheusProvider(PrometheusProviderOptions{Registry: reg})
		counter := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "ticks_total", Help: "ticks"}})

		counter.Inc(1)
		counter.Inc(2)

		assert.InDelta(t, 3, testutil.ToFloat64(counter.(*promCounter).vec), 1e-9)
	})

	t.Run("a_gauge_reflects_the_last_set_value", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		p := NewPrometheusProvider(PrometheusProviderOptions{Registry: reg})
		gauge := p.NewGauge(GaugeOpts{CommonOpts: CommonOpts{Name: "population_size", Help: "size"}})

		gauge.Set(10)
		gauge.Add(5)

		assert.InDelta(t, 15, testutil.ToFloat64(gauge.(*promGauge).vec), 1e-9)
	})

	t.Run("a_noop_provider_discards_every_observation_without_panicking", func(t *testing.T) {
		p := NewNoopProvider()
		counter := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "x"}})
		counter.Inc(1)
		require.NoError(t, p.Health(context.Background()))
	})
}
