package search

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"truthx/internal/logging"
)

// DefaultDebounce is how long Watch waits for writes to settle before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads the index whenever the articles file is written, created, or
// renamed into place, until ctx is cancelled. The parent directory is watched
// so editors that replace the file atomically are handled.
func (i *Index) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create articles watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(i.path)
	if err != nil {
		return fmt.Errorf("resolve articles path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch articles directory: %w", err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(i.logger, "articles watcher error", "articles_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "article changes may not be picked up until restart"),
			)
		case <-timer.C:
			if err := i.Reload(); err != nil {
				logging.WarnWithContext(i.logger, "articles reload failed; keeping previous index", "articles_reload_failed",
					logging.String("path", i.path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "fix the articles file; it must be a JSON array of objects with an id"),
				)
			}
		}
	}
}
