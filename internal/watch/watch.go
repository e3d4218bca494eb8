// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch reports changes to a fixed set of files, debounced into
// batches. Editors often save by writing a temporary file and renaming it,
// so the parent directories are watched rather than the files themselves.
package watch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce applies when New is given a non-positive debounce.
const DefaultDebounce = 300 * time.Millisecond

// Watcher emits the set of changed files once no further change has been
// seen for the debounce interval.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	files   map[string]string // absolute path -> path as given
	hashes  map[string][32]byte
	pending map[string]bool

	batches chan []string
}

// New returns a Watcher for paths. Call Start to begin delivering batches.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		files:    make(map[string]string),
		hashes:   make(map[string][32]byte),
		pending:  make(map[string]bool),
		batches:  make(chan []string, 16),
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Add watches one more file.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w.mu.Lock()
	_, known := w.files[abs]
	w.files[abs] = path
	if sum, ok := hashFile(abs); ok {
		w.hashes[abs] = sum
	}
	w.mu.Unlock()
	if known {
		return nil
	}

	dir := filepath.Dir(abs)
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Debug("watching file", "path", path, "dir", dir)
	return nil
}

// Batches delivers sorted lists of changed files, as they were given to New
// or Add. The channel is closed when the watcher stops.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Start processes file events until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.batches)

	var flush <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handle(event) {
				flush = time.After(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)

		case <-flush:
			flush = nil
			if batch := w.takePending(); len(batch) > 0 {
				select {
				case w.batches <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handle marks a watched file as pending. Content is compared at flush
// time, once writes have settled.
func (w *Watcher) handle(event fsnotify.Event) bool {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[abs]; !ok {
		return false
	}
	w.pending[abs] = true
	w.logger.Debug("file event", "path", w.files[abs], "op", event.Op.String())
	return true
}

// takePending returns the pending files whose content differs from the last
// batch. A file that can no longer be read counts as changed.
func (w *Watcher) takePending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := make([]string, 0, len(w.pending))
	for abs := range w.pending {
		sum, ok := hashFile(abs)
		prev, seen := w.hashes[abs]
		switch {
		case !ok:
			if !seen {
				continue
			}
			delete(w.hashes, abs)
		case seen && prev == sum:
			continue
		default:
			w.hashes[abs] = sum
		}
		batch = append(batch, w.files[abs])
	}
	w.pending = make(map[string]bool)
	sort.Strings(batch)
	return batch
}

func hashFile(path string) ([32]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, false
	}
	return sha256.Sum256(data), true
}
