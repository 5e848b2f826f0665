package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Run("a_write_to_the_watched_file_produces_a_reload", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "override.yaml")
		require.NoError(t, os.WriteFile(path, []byte("population:\n  population_size: 100\n"), 0o644))

		tree := NewTree()
		require.NoError(t, tree.LoadYAML(LayerOverride, path))

		watcher, err := NewWatcher(tree, LayerOverride, path)
		require.NoError(t, err)
		defer watcher.Stop()

		changes, errs := watcher.Watch()

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, os.WriteFile(path, []byte("population:\n  population_size: 200\n"), 0o644))

		select {
		case change, ok := <-changes:
			require.True(t, ok)
			require.Equal(t, path, change.Path)
		case err := <-errs:
			t.Fatalf("unexpected watch error: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a reload notification")
		}

		v, _, ok := tree.Get("population.population_size")
		require.True(t, ok)
		require.Equal(t, 200, v)
	})

	t.Run("writes_are_ignored_once_the_tree_is_frozen", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "override.yaml")
		require.NoError(t, os.WriteFile(path, []byte("k: 1\n"), 0o644))

		tree := NewTree()
		require.NoError(t, tree.LoadYAML(LayerOverride, path))
		tree.Freeze()

		watcher, err := NewWatcher(tree, LayerOverride, path)
		require.NoError(t, err)
		defer watcher.Stop()

		changes, _ := watcher.Watch()

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, os.WriteFile(path, []byte("k: 2\n"), 0o644))

		select {
		case _, ok := <-changes:
			if ok {
				t.Fatal("expected no reload once the tree is frozen")
			}
		case <-time.After(300 * time.Millisecond):
			// no notification arrived, as expected
		}
	})
}
