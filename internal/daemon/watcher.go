package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events one save produces.
const defaultDebounce = 250 * time.Millisecond

// ConfigWatcher reports changes to one file. It watches the parent
// directory, since editors and atomic writers replace files by rename.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewConfigWatcher creates a watcher for path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfigWatcher{path: filepath.Clean(path), debounce: defaultDebounce, logger: logger}
}

// Run calls onChange after the file is written, created, renamed into place
// or removed, until ctx is canceled.
func (w *ConfigWatcher) Run(ctx context.Context, onChange func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("daemon: creating config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("config directory does not exist, not watching for changes",
				slog.String("dir", dir),
			)

			return nil
		}

		return fmt.Errorf("daemon: watching %s: %w", dir, err)
	}

	w.logger.Debug("watching config file", slog.String("path", w.path))

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != w.path || ev.Op == fsnotify.Chmod {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

			pending = timer.C

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("config watcher error", slog.String("error", werr.Error()))

		case <-pending:
			pending = nil

			w.logger.Info("config file changed", slog.String("path", w.path))
			onChange(ctx)
		}
	}
}
