package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatorEvaluate(t *testing.T) {
	t.Run("overall_status_is_the_worst_of_its_probes", func(t *testing.T) {
		e := NewEvaluator(time.Minute,
			ProbeFunc(func(ctx context.Context) ProbeResult { return Healthy("population") }),
			ProbeFunc(func(ctx context.Context) ProbeResult { return Degraded("resource_graph", "nearing limit") }),
		)
		snap := e.Evaluate(context.Background())
		assert.Equal(t, StatusDegraded, snap.Overall)
		assert.Len(t, snap.Probes, 2)
	})

	t.Run("an_unhealthy_probe_dominates_a_degraded_one", func(t *testing.T) {
		e := NewEvaluator(time.Minute,
			ProbeFunc(func(ctx context.Context) ProbeResult { return Degraded("a", "x") }),
			ProbeFunc(func(ctx context.Context) ProbeResult { return Unhealthy("b", "y") }),
		)
		snap := e.Evaluate(context.Background())
		assert.Equal(t, StatusUnhealthy, snap.Overall)
	})

	t.Run("a_cached_snapshot_is_reused_within_its_ttl", func(t *testing.T) {
		calls := 0
		e := NewEvaluator(time.Hour, ProbeFunc(func(ctx context.Context) ProbeResult {
			calls++
			return Healthy("probe")
		}))
		e.Evaluate(context.Background())
		e.Evaluate(context.Background())
		assert.Equal(t, 1, calls)
	})

	t.Run("registering_a_nil_probe_is_a_no_op", func(t *testing.T) {
		e := NewEvaluator(time.Minute)
		e.Register(nil)
		snap := e.Evaluate(context.Background())
		assert.Equal(t, StatusHealthy, snap.Overall)
		assert.Empty(t, snap.Probes)
	})
}
