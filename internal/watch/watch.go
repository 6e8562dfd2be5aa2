// Package watch runs a handler on files dropped into a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a file must go without writes before it is
// handled.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one file.  Errors are logged and do not stop the
// watcher.
type Handler func(ctx context.Context, path string) error

// Option is a function that can be used as an option for New.
type Option func(*Watcher)

// WithLogger sets the logger events and handler errors are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithSettle sets how long a file must be quiet before it is handled.
func WithSettle(settle time.Duration) Option {
	return func(w *Watcher) {
		w.settle = settle
	}
}

// Watcher hands new files in a directory to a Handler, one at a time.
type Watcher struct {
	dir     string
	handler Handler
	logger  *zap.Logger
	settle  time.Duration

	// pending maps a path to the time of its last event.
	pending map[string]time.Time
}

// New creates a watcher for dir.  Nothing is watched until Run is called.
func New(dir string, handler Handler, options ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch directory %q: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	w := &Watcher{
		dir:     dir,
		handler: handler,
		logger:  zap.NewNop(),
		settle:  DefaultSettle,
		pending: make(map[string]time.Time),
	}

	for _, option := range options {
		option(w)
	}

	if w.settle <= 0 {
		w.settle = DefaultSettle
	}

	return w, nil
}

// Run watches the directory until ctx is cancelled.  Files are handled
// sequentially once they have settled, so a slow handler delays later files
// rather than running alongside them.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	err = fsWatcher.Add(w.dir)
	if err != nil {
		return fmt.Errorf("failed to watch directory %q: %w", w.dir, err)
	}

	w.logger.Info("watching directory", zap.String("dir", w.dir))

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && !hidden(event.Name) {
				w.pending[event.Name] = time.Now()
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Error("watcher error", zap.Error(err))

		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string

	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
		}
	}

	sort.Strings(ready)

	for _, path := range ready {
		delete(w.pending, path)

		if ctx.Err() != nil {
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		w.logger.Debug("processing file", zap.String("path", path))

		err = w.handler(ctx, path)
		if err != nil {
			w.logger.Error("failed to process file", zap.String("path", path), zap.Error(err))
			continue
		}

		w.logger.Info("processed file", zap.String("path", path))
	}
}

// hidden skips dotfiles, which editors and copy tools use for partial
// writes.
func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
