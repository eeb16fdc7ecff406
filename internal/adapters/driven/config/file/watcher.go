package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/recall/internal/logger"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a ConfigStore when its file changes.
type Watcher struct {
	store    *ConfigStore
	debounce time.Duration
}

// NewWatcher creates a watcher for store.
func NewWatcher(store *ConfigStore) *Watcher {
	return &Watcher{store: store, debounce: DefaultDebounce}
}

// Watch starts watching the config file. After each successful reload a value
// is sent on the returned channel; the channel is closed when ctx is done.
// A file that fails to parse is logged and the previous values are kept.
func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// Watch the directory: editors often replace the file by rename.
	if err := fsw.Add(filepath.Dir(w.store.Path())); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching config directory: %w", err)
	}

	reloaded := make(chan struct{}, 1)
	go w.run(ctx, fsw, reloaded)
	return reloaded, nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, reloaded chan<- struct{}) {
	defer close(reloaded)
	defer fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher: %v", err)

		case <-fire:
			fire = nil
			if err := w.store.Load(); err != nil {
				logger.Warn("config reload failed, keeping previous settings: %v", err)
				continue
			}
			logger.Info("config reloaded from %s", w.store.Path())
			// Drop the signal if the consumer has not picked up the last one.
			select {
			case reloaded <- struct{}{}:
			default:
			}
		}
	}
}

// relevant reports whether event touches the config file with a content change.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}
