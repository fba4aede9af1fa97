package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a single file. It watches the parent directory
// so editors that replace the file via rename are still seen.
type Watcher struct {
	path string
	dir  string

	debouncer *Debouncer
	watcher   *fsnotify.Watcher
	logger    *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	// OnChange runs after writes to the file settle.
	OnChange func(path string)
}

func NewWatcher(path string, opts Options) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	abs = filepath.Clean(abs)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		path:      abs,
		dir:       dir,
		debouncer: NewDebouncer(opts.Debounce),
		watcher:   fsw,
		logger:    logger,
		closed:    make(chan struct{}),
	}
	if opts.OnChange != nil {
		w.debouncer.OnFire(func([]string) { opts.OnChange(w.path) })
	}
	return w, nil
}

func (w *Watcher) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

func (w *Watcher) Debounce() time.Duration {
	if w == nil {
		return 0
	}
	return w.debouncer.Delay()
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}

	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.debouncer.Stop()
		err = w.watcher.Close()
	})
	return err
}

// Run blocks until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.watcher == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
		w.debouncer.Push(w.path)
	}
}
