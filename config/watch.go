package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change reports one successful reload of a watched configuration file.
type Change struct {
	Path string
	Hash string
}

// Watcher reloads a YAML configuration file into a layer whenever it
// changes on disk, so an operator can edit a model's override file between
// runs without restarting the process that holds the tree.
type Watcher struct {
	tree    *Tree
	layer   Layer
	path    string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	watching bool
}

// NewWatcher constructs a Watcher for path's containing directory (watching
// the directory rather than the file directly survives editors that replace
// the file instead of writing it in place).
func NewWatcher(tree *Tree, layer Layer, path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating configuration file watcher: %w", err)
	}
	return &Watcher{tree: tree, layer: layer, path: path, watcher: w}, nil
}

// Watch starts watching in a background goroutine and returns channels of
// successful reloads and reload errors. Stop unregisters the watch.
func (w *Watcher) Watch() (<-chan Change, <-chan error) {
	changes := make(chan Change, 8)
	errs := make(chan error, 8)

	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		close(changes)
		close(errs)
		return changes, errs
	}
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Unlock()
		errs <- fmt.Errorf("watching configuration directory %s: %w", dir, err)
		close(changes)
		close(errs)
		return changes, errs
	}
	w.watching = true
	w.mu.Unlock()

	go func() {
		defer close(changes)
		defer close(errs)
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Name != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if w.tree.Frozen() {
					continue
				}
				if err := w.tree.LoadYAML(w.layer, w.path); err != nil {
					errs <- err
					continue
				}
				hash, err := w.tree.Hash()
				if err != nil {
					errs <- err
					continue
				}
				changes <- Change{Path: w.path, Hash: hash}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				errs <- err
			}
		}
	}()

	return changes, errs
}

// Stop closes the underlying file watcher, ending the background goroutine.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
