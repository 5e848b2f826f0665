package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysByIndex(index []int) ([]KeyTuple, error) {
	out := make([]KeyTuple, len(index))
	for i, row := range index {
		out[i] = KeyTuple{IntKey(int64(row))}
	}
	return out, nil
}

func TestManagerGetStream(t *testing.T) {
	t.Run("same_key_time_and_seed_reproduce_identical_draws", func(t *testing.T) {
		clockTime := 10.0
		m1 := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return clockTime }, keysByIndex)
		m2 := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return clockTime }, keysByIndex)

		index := []int{0, 1, 2, 3}
		require.NoError(t, m1.RegisterSimulants(index))
		require.NoError(t, m2.RegisterSimulants(index))

		s1, err := m1.GetStream("mortality", false)
		require.NoError(t, err)
		s2, err := m2.GetStream("mortality", false)
		require.NoError(t, err)

		d1, err := s1.GetDraw(index, "")
		require.NoError(t, err)
		d2, err := s2.GetDraw(index, "")
		require.NoError(t, err)

		assert.Equal(t, d1, d2)
	})

	t.Run("different_additional_key_changes_the_draw", func(t *testing.T) {
		m := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		index := []int{0, 1}
		require.NoError(t, m.RegisterSimulants(index))
		s, err := m.GetStream("fertility", false)
		require.NoError(t, err)

		a, err := s.GetDraw(index, "first")
		require.NoError(t, err)
		b, err := s.GetDraw(index, "second")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("crn_initializing_stream_rejects_an_additional_key", func(t *testing.T) {
		m := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		s, err := m.GetStream("entrance_time", true)
		require.NoError(t, err)

		_, err = s.GetDraw([]int{0}, "disallowed")
		assert.Error(t, err)
	})

	t.Run("requesting_the_same_key_with_a_different_crn_role_is_rejected", func(t *testing.T) {
		m := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		_, err := m.GetStream("shared", true)
		require.NoError(t, err)

		_, err = m.GetStream("shared", false)
		assert.Error(t, err)
	})

	t.Run("an_unregistered_key_tuple_on_a_crn_enabled_stream_is_a_randomness_error", func(t *testing.T) {
		m := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		s, err := m.GetStream("mortality", false)
		require.NoError(t, err)

		_, err = s.GetDraw([]int{0}, "")
		assert.Error(t, err)
	})

	t.Run("an_unregistered_key_tuple_is_tolerated_when_crn_is_disabled", func(t *testing.T) {
		m := NewManager(Config{GlobalSeed: 1, UseCRN: false}, func() float64 { return 0 }, keysByIndex)
		s, err := m.GetStream("mortality", false)
		require.NoError(t, err)

		draws, err := s.GetDraw([]int{0, 1}, "")
		require.NoError(t, err)
		assert.Len(t, draws, 2)
	})
}

func TestStreamChoice(t *testing.T) {
	t.Run("residual_choice_absorbs_remaining_weight", func(t *testing.T) {
		m := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		index := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		require.NoError(t, m.RegisterSimulants(index))
		s, err := m.GetStream("color", false)
		require.NoError(t, err)

		options := []string{"red", "blue"}
		weights := [][]float64{{0.25, ResidualChoice()}}

		picks, err := s.Choice(index, options, weights, "")
		require.NoError(t, err)
		require.Len(t, picks, len(index))
		for _, p := range picks {
			assert.Contains(t, options, p)
		}
	})

	t.Run("more_than_one_residual_weight_is_rejected", func(t *testing.T) {
		_, err := resolveWeights([]float64{ResidualChoice(), ResidualChoice()})
		assert.Error(t, err)
	})

	t.Run("weights_summing_over_one_before_residual_is_rejected", func(t *testing.T) {
		_, err := resolveWeights([]float64{0.7, 0.7})
		assert.Error(t, err)
	})

	t.Run("plain_weights_with_no_residual_resolve_unchanged", func(t *testing.T) {
		out, err := resolveWeights([]float64{0.3, 0.7})
		require.NoError(t, err)
		assert.Equal(t, []float64{0.3, 0.7}, out)
	})
}

func TestStreamFilterForRate(t *testing.T) {
	t.Run("higher_rate_admits_at_least_as_many_as_lower_rate_over_many_trials", func(t *testing.T) {
		index := make([]int, 500)
		for i := range index {
			index[i] = i
		}
		m := NewManager(Config{GlobalSeed: 1, UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		require.NoError(t, m.RegisterSimulants(index))
		s, err := m.GetStream("mortality", false)
		require.NoError(t, err)

		low := make([]float64, len(index))
		high := make([]float64, len(index))
		for i := range low {
			low[i] = 0.01
			high[i] = 0.5
		}

		lowOut, err := s.FilterForRate(index, low, 1.0, "low")
		require.NoError(t, err)
		highOut, err := s.FilterForRate(index, high, 1.0, "high")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(highOut), len(lowOut))
	})
}
