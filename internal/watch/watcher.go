// Package watch rebuilds tokens when their source files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kingrea/sando/internal/token"
)

// DefaultDebounce is how long the source tree must be quiet before a
// batch of changes is delivered.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc receives the token files touched since the last call, sorted.
// It runs on the watcher goroutine, so calls never overlap.
type ChangeFunc func(ctx context.Context, paths []string)

// Stats tracks watcher activity.
type Stats struct {
	Events    int
	Batches   int
	Errors    int
	Dirs      int
	LastEvent time.Time
	LastPath  string
}

// Watcher watches a source directory recursively.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	logger   *zap.Logger
	onChange ChangeFunc
	debounce time.Duration
	pending  map[string]time.Time
	dirs     map[string]bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		root:     filepath.Clean(root),
		logger:   zap.NewNop(),
		onChange: onChange,
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
		dirs:     make(map[string]bool),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds every directory below root and begins delivering changes.
// It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		w.logger.Warn("watch: create source dir", zap.String("dir", w.root), zap.Error(err))
	}
	if err := w.addTree(w.root, false); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		_ = w.watcher.Close()
		close(w.doneCh)
		return err
	}
	w.logger.Info("watch: watching", zap.String("dir", w.root), zap.Int("dirs", w.Stats().Dirs))

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("watch: close", zap.Error(err))
	}
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch: fsnotify", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Files may land in the new directory before its watch is added.
			if err := w.addTree(event.Name, true); err != nil {
				w.logger.Warn("watch: add dir", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.forgetDir(event.Name)
	}
	if !token.IsTokenFile(filepath.Base(event.Name)) {
		return
	}
	w.logger.Debug("watch: event", zap.String("op", event.Op.String()), zap.String("path", event.Name))
	w.mark(event.Name)
}

func (w *Watcher) mark(path string) {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = now
	w.stats.Events++
	w.stats.LastEvent = now
	w.stats.LastPath = path
}

// flush delivers the pending batch once no event has arrived for the
// debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.stats.LastEvent) < w.debounce {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.stats.Batches++
	w.mu.Unlock()

	sort.Strings(paths)
	w.logger.Info("watch: sources changed", zap.Strings("paths", paths))
	if w.onChange != nil {
		w.onChange(ctx, paths)
	}
}

// addTree watches dir and every directory below it. With markFiles set,
// token files already present are queued as changes.
func (w *Watcher) addTree(dir string, markFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			w.mu.Lock()
			if !w.dirs[path] {
				w.dirs[path] = true
				w.stats.Dirs++
			}
			w.mu.Unlock()
			return nil
		}
		if markFiles && token.IsTokenFile(d.Name()) {
			w.mark(path)
		}
		return nil
	})
}

// forgetDir drops bookkeeping for a removed directory; fsnotify removes
// the watch itself.
func (w *Watcher) forgetDir(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[path] {
		delete(w.dirs, path)
		w.stats.Dirs--
	}
}
