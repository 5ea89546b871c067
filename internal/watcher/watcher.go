// Package watcher reloads the threat pattern library when its file
// changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sentryd/internal/classifier"
	"sentryd/internal/logging"
)

// debounceDelay coalesces the event bursts editors produce on save.
const debounceDelay = 200 * time.Millisecond

// PatternWatcher watches a pattern library file and delivers validated
// reloads to a callback. Invalid updates are logged and dropped; the
// previous library stays active.
type PatternWatcher struct {
	path     string
	onReload func([]classifier.Pattern)
	logger   *logging.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
}

// New creates a watcher for the library at path. onReload is called
// with the parsed patterns after each successful reload.
func New(path string, onReload func([]classifier.Pattern), logger *logging.Logger) (*PatternWatcher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors typically replace the file, which
	// drops a watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	return &PatternWatcher{
		path:     path,
		onReload: onReload,
		logger:   logger.WithComponent("watcher"),
		watcher:  fsw,
	}, nil
}

// Start begins watching until the context is cancelled or Close is
// called.
func (w *PatternWatcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
}

func (w *PatternWatcher) loop(ctx context.Context) {
	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// reload parses and validates the library, delivering it only if valid.
func (w *PatternWatcher) reload() {
	patterns, err := classifier.LoadPatterns(w.path)
	if err != nil {
		w.logger.Error("pattern reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.Info("pattern library reloaded", "path", w.path, "patterns", len(patterns))
	w.onReload(patterns)
}

// Close stops the watcher.
func (w *PatternWatcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.watcher.Close()
}
