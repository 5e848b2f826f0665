package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulacra/internal/resource"
)

func TestManagerIndexMapSizing(t *testing.T) {
	t.Run("defaults_to_one_million_with_no_explicit_size_or_population", func(t *testing.T) {
		m := NewManager(Config{UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		assert.Equal(t, 1_000_000, m.indexMap.Size())
	})

	t.Run("sizes_to_ten_times_the_population_when_that_exceeds_the_configured_size", func(t *testing.T) {
		m := NewManager(Config{UseCRN: true, PopulationSize: 500_000, IndexMapSize: 1000}, func() float64 { return 0 }, keysByIndex)
		assert.Equal(t, 5_000_000, m.indexMap.Size())
	})

	t.Run("an_explicit_index_map_size_above_the_population_floor_is_kept", func(t *testing.T) {
		m := NewManager(Config{UseCRN: true, PopulationSize: 10, IndexMapSize: 2_000_000}, func() float64 { return 0 }, keysByIndex)
		assert.Equal(t, 2_000_000, m.indexMap.Size())
	})
}

func TestManagerRegisterResources(t *testing.T) {
	t.Run("each_requested_stream_becomes_a_kind_stream_producer", func(t *testing.T) {
		m := NewManager(Config{UseCRN: true}, func() float64 { return 0 }, keysByIndex)
		_, err := m.GetStream("mortality", false)
		require.NoError(t, err)

		r := resource.NewManager()
		require.NoError(t, m.RegisterResources(r))
		require.NoError(t, r.Register("mortality_consumer", "mortality_component", nil, []resource.ID{{Kind: resource.KindStream, Name: "mortality"}}, func() {}))

		order, err := r.GetOrderedInitializers()
		require.NoError(t, err)
		names := make([]string, len(order))
		for i, init := range order {
			names[i] = init.Name
		}
		assert.Equal(t, []string{"stream:mortality", "mortality_consumer"}, names)
	})
}
