package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulacra/internal/resource"
)

func TestPipelineCall(t *testing.T) {
	t.Run("modifiers_apply_in_registration_order", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.RegisterValueProducer("risk", func(index []int) Value {
			out := make([]float64, len(index))
			for i := range out {
				out[i] = 1.0
			}
			return out
		}, nil))
		m.RegisterValueModifier("risk", func(index []int, prior Value) Value {
			v := prior.([]float64)
			for i := range v {
				v[i] += 1
			}
			return v
		}, nil)
		m.RegisterValueModifier("risk", func(index []int, prior Value) Value {
			v := prior.([]float64)
			for i := range v {
				v[i] *= 10
			}
			return v
		}, nil)

		out, err := m.Call("risk", []int{0, 1})
		require.NoError(t, err)
		assert.Equal(t, []float64{20, 20}, out)
	})

	t.Run("calling_an_unregistered_pipeline_errors", func(t *testing.T) {
		m := NewManager()
		_, err := m.Call("nonexistent", []int{0})
		assert.Error(t, err)
	})

	t.Run("registering_a_second_source_for_the_same_pipeline_errors", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.RegisterValueProducer("p", func(index []int) Value { return 1 }, nil))
		err := m.RegisterValueProducer("p", func(index []int) Value { return 2 }, nil)
		assert.Error(t, err)
	})

	t.Run("required_resources_accumulate_across_producer_and_modifiers", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.RegisterValueProducer("p", func(index []int) Value { return nil }, []string{"a"}))
		m.RegisterValueModifier("p", func(index []int, prior Value) Value { return prior }, []string{"b"})
		assert.ElementsMatch(t, []string{"a", "b"}, m.RequiredResources("p"))
	})
}

func TestManagerRegisterResources(t *testing.T) {
	t.Run("each_pipeline_becomes_a_kind_value_producer", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.RegisterValueProducer("risk", func(index []int) Value { return nil }, []string{"age"}))

		r := resource.NewManager()
		require.NoError(t, m.RegisterResources(r))

		require.NoError(t, r.Register("age_initializer", "age_component", []resource.ID{{Kind: resource.KindColumn, Name: "age"}}, nil, func() {}))
		require.NoError(t, r.Register("risk_consumer", "risk_component", nil, []resource.ID{{Kind: resource.KindValue, Name: "risk"}}, func() {}))

		order, err := r.GetOrderedInitializers()
		require.NoError(t, err)
		names := make([]string, len(order))
		for i, init := range order {
			names[i] = init.Name
		}
		assert.Equal(t, []string{"age_initializer", "value:risk", "risk_consumer"}, names)
	})

	t.Run("a_missing_required_resource_is_rejected_at_ordering_time", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.RegisterValueProducer("risk", func(index []int) Value { return nil }, []string{"missing_column"}))

		r := resource.NewManager()
		require.NoError(t, m.RegisterResources(r))

		_, err := r.GetOrderedInitializers()
		assert.Error(t, err)
	})
}

func TestRateProducer(t *testing.T) {
	t.Run("converts_annual_rate_to_per_step_probability", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.RegisterRateProducer("mortality", func(index []int) Value {
			return []float64{0.1}
		}, func() float64 { return 1.0 }))

		out, err := m.Call("mortality", []int{0})
		require.NoError(t, err)
		probs := out.([]float64)
		require.Len(t, probs, 1)
		assert.InDelta(t, 0.0952, probs[0], 1e-3)
	})
}
