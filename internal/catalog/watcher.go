package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const (
	// settleDelay lets editors finish writing before the file is re-read.
	settleDelay = 200 * time.Millisecond

	// minReloadInterval throttles reloads of a file that keeps changing.
	minReloadInterval = time.Second
)

// Watcher reloads a catalog file into a Source whenever it changes on disk.
type Watcher struct {
	path    string
	source  *Source
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewWatcher creates a Watcher for path feeding source.
func NewWatcher(path string, source *Source, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:    path,
		source:  source,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(minReloadInterval), 1),
	}
}

// Reload reads the file once and swaps it into the source. A file that fails
// to decode leaves the previous catalog in place.
func (w *Watcher) Reload() error {
	next, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	w.source.Replace(next)
	w.logger.Info("catalog loaded", "path", w.path, "cards", next.Len())
	return nil
}

// Run watches the file until ctx is cancelled. The parent directory is
// watched so that atomic renames by editors are seen too.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	target := filepath.Clean(w.path)
	// Timer semantics from Go 1.23 on: Stop and Reset never leave a stale tick.
	settle := time.NewTimer(settleDelay)
	settle.Stop()

	for {
		select {
		case <-ctx.Done():
			settle.Stop()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			settle.Reset(settleDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)

		case <-settle.C:
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("catalog reload failed, keeping previous catalog", "path", w.path, "error", err)
			}
		}
	}
}
