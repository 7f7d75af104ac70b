package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a file change reloads
// the catalog.
const DefaultDebounceInterval = 250 * time.Millisecond

// FileWatcher reloads a Manager when its catalog file changes on disk.
//
// The parent directory is watched, so saves that replace the file by
// rename are seen, as are symlink swaps such as a Kubernetes ConfigMap
// update, which change what the path resolves to without touching it.
type FileWatcher struct {
	path     string
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
}

// NewFileWatcher creates a watcher for path that reloads manager.
// A zero interval uses DefaultDebounceInterval.
func NewFileWatcher(path string, manager *Manager, interval time.Duration) (*FileWatcher, error) {
	if path == "" {
		return nil, errors.New("catalog path cannot be empty")
	}
	if manager == nil {
		return nil, errors.New("manager cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}
	return &FileWatcher{
		path:     abs,
		manager:  manager,
		interval: interval,
		logger:   slog.Default().With("component", "safety.catalog.watcher", "path", abs),
	}, nil
}

// Watch reloads the manager once per burst of changes, after interval
// passes without another change. It blocks until ctx is done.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(fw.path)); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}
	fw.logger.Info("catalog watcher started")

	target := fw.resolve()
	quiet := time.NewTimer(fw.interval)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			resolved := fw.resolve()
			if filepath.Clean(ev.Name) != fw.path && resolved == target {
				continue
			}
			target = resolved
			fw.logger.Debug("catalog file changed", "op", ev.Op.String())
			quiet.Reset(fw.interval)

		case <-quiet.C:
			// The manager logs failures and keeps the active catalog.
			_, _ = fw.manager.Reload(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("catalog watcher error", "error", err)
		}
	}
}

// resolve returns the file the path currently points at, or "" when it
// does not exist.
func (fw *FileWatcher) resolve() string {
	p, err := filepath.EvalSymlinks(fw.path)
	if err != nil {
		return ""
	}
	return p
}
