// Package watch feeds file system changes into incremental analysis.
// Events are debounced so editor save bursts collapse into one batch.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vigilscan/vigil/internal/config"
	"github.com/vigilscan/vigil/internal/debug"
)

// Watcher monitors a directory tree and reports batches of changed
// file paths after a quiet period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	cfg      *config.Config
	root     string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	onBatch func(paths []string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher that invokes onBatch with the debounced set of
// changed paths.
func New(cfg *config.Config, onBatch func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fsw,
		cfg:      cfg,
		debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		pending:  make(map[string]bool),
		onBatch:  onBatch,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching root and every directory beneath it.
func (w *Watcher) Start(root string) error {
	w.root = root
	if err := w.addWatches(root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()

	debug.LogWatch("watching %s (debounce %v)\n", root, w.debounce)
	return nil
}

// Stop shuts the watcher down and waits for in-flight work.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.excludedDir(rel) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// excludedDir reports whether a directory matches an exclusion
// pattern. Hidden directories are always excluded.
func (w *Watcher) excludedDir(rel string) bool {
	base := filepath.Base(rel)
	if len(base) > 1 && base[0] == '.' {
		return true
	}
	return !w.cfg.ShouldDescend(rel)
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
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
			debug.LogWatch("watch error: %v\n", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	// New directories need their own watches
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addWatches(event.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || !w.cfg.ShouldAnalyze(filepath.ToSlash(rel)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	debug.LogWatch("flushing %d changed paths\n", len(paths))
	w.onBatch(paths)
}
