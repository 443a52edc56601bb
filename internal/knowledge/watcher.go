package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"ardi/internal/logging"
)

// Watcher hot-reloads the library when collection files change. Reload is
// debounced: editors fire several events per save.
type Watcher struct {
	library  *Library
	dir      string
	debounce time.Duration
}

// NewWatcher creates a watcher over the given collections dir.
func NewWatcher(library *Library, dir string) *Watcher {
	return &Watcher{
		library:  library,
		dir:      dir,
		debounce: 500 * time.Millisecond,
	}
}

// Run watches until ctx is cancelled. A failed reload keeps the previous
// library; the watcher never propagates reload errors.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	logging.Boot("Watching %s for collection changes", w.dir)

	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(w.debounce)
			} else {
				pending.Reset(w.debounce)
			}
			pendingC = pending.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryBoot).Warn("Watcher error: %v", err)

		case <-pendingC:
			pendingC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	collections, err := LoadDir(w.dir)
	if err != nil {
		logging.Get(logging.CategoryBoot).Warn("Reload failed, keeping current library: %v", err)
		return
	}
	if len(collections) == 0 {
		logging.Get(logging.CategoryBoot).Warn("Reload found no collections, keeping current library")
		return
	}
	w.library.Replace(collections)
}
