package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMapRegisterLookup(t *testing.T) {
	t.Run("identical_key_tuples_resolve_to_the_same_position_across_independent_maps", func(t *testing.T) {
		keyA := KeyTuple{IntKey(42), FloatKey(0.5)}
		keyB := KeyTuple{IntKey(7), FloatKey(0.25)}

		first := NewIndexMap(1000, true)
		require.NoError(t, first.Register([]KeyTuple{keyA, keyB}))

		second := NewIndexMap(1000, true)
		require.NoError(t, second.Register([]KeyTuple{keyB, keyA}))

		posA1, ok := first.Lookup(keyA)
		require.True(t, ok)
		posA2, ok := second.Lookup(keyA)
		require.True(t, ok)
		assert.Equal(t, posA1, posA2)

		posB1, _ := first.Lookup(keyB)
		posB2, _ := second.Lookup(keyB)
		assert.Equal(t, posB1, posB2)
	})

	t.Run("registered_keys_never_collide_within_one_map", func(t *testing.T) {
		m := NewIndexMap(64, true)
		var keys []KeyTuple
		for i := 0; i < 50; i++ {
			keys = append(keys, KeyTuple{IntKey(int64(i))})
		}
		require.NoError(t, m.Register(keys))

		seen := make(map[int]bool)
		for _, k := range keys {
			pos, ok := m.Lookup(k)
			require.True(t, ok)
			assert.False(t, seen[pos], "position %d assigned to more than one key", pos)
			seen[pos] = true
		}
	})

	t.Run("lookup_of_unregistered_key_reports_not_found", func(t *testing.T) {
		m := NewIndexMap(100, true)
		_, ok := m.Lookup(KeyTuple{IntKey(1)})
		assert.False(t, ok)
	})

	t.Run("crn_disabled_map_never_resolves_positions", func(t *testing.T) {
		m := NewIndexMap(100, false)
		require.NoError(t, m.Register([]KeyTuple{{IntKey(1)}}))
		_, ok := m.Lookup(KeyTuple{IntKey(1)})
		assert.False(t, ok)
	})
}
