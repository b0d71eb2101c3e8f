package web

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the bot directory must be quiet before a
// change triggers a refresh.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls onChange after files in the watched bot directory change.
// Bursts of events within the debounce window cause a single call.
type Watcher struct {
	fw       *fsnotify.Watcher
	onChange func(context.Context) error
	debounce time.Duration
	log      *zap.Logger

	mu  sync.Mutex
	dir string
}

// NewWatcher creates a watcher. Call SetDir to choose what it watches.
func NewWatcher(onChange func(context.Context) error, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{fw: fw, onChange: onChange, debounce: debounce, log: log}, nil
}

// SetDir moves the watch to dir.
func (w *Watcher) SetDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if dir == w.dir {
		return nil
	}
	if w.dir != "" {
		_ = w.fw.Remove(w.dir)
	}
	if err := w.fw.Add(dir); err != nil {
		w.dir = ""
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dir = dir
	w.log.Debug("watching bot directory", zap.String("dir", dir))
	return nil
}

// Dir is the watched directory.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fw.Close() }()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if relevantEvent(ev) {
				w.log.Debug("bot directory changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				w.log.Warn("refresh after change failed", zap.Error(err))
			}
		}
	}
}

// relevantEvent skips chmod-only events, hidden files (including the lock
// file) and editor backups.
func relevantEvent(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
