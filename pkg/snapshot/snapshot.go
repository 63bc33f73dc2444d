// Package snapshot persists and restores a Terminal's full state to the
// binary dump format pkg/term already knows how to produce and parse
// (magic "RFBT" + version header, then the terminal's exact field layout).
// Writes are batched and debounced, then atomically replace the target
// file rather than appending per-event records.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"rfbterm/internal/logging"
	"rfbterm/pkg/term"
)

const syncDebounce = 200 * time.Millisecond

// Writer batches Dump() calls so a burst of terminal activity produces one
// file write instead of one per cell change.
type Writer struct {
	term *term.Terminal
	path string

	mu      sync.Mutex
	closed  bool
	timer   *time.Timer
	pending bool
}

// NewWriter returns a Writer that will snapshot t to path on ScheduleWrite.
func NewWriter(t *term.Terminal, path string) *Writer {
	return &Writer{term: t, path: path}
}

// WriteNow dumps the terminal's current state and atomically replaces the
// snapshot file (write to a temp file in the same directory, then rename).
func (w *Writer) WriteNow() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked()
}

func (w *Writer) writeLocked() error {
	data := w.term.Dump()
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename temp file: %w", err)
	}
	w.pending = false
	return nil
}

// ScheduleWrite debounces a snapshot write syncDebounce after the last
// call, so rapid terminal updates coalesce into a single disk write.
func (w *Writer) ScheduleWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(syncDebounce, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.closed || !w.pending {
			return
		}
		if err := w.writeLocked(); err != nil {
			logging.Warnf("snapshot: debounced write failed: %v", err)
		}
	})
}

// Close flushes any pending write and stops the debounce timer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.pending {
		return w.writeLocked()
	}
	return nil
}

// Load reads a snapshot file from disk and restores it into t.
func Load(t *term.Terminal, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return t.Load(data)
}

// Watch restores t from path whenever the file changes, for a live
// "follow this terminal's snapshots" mode (cmd/rfbtermd's "snapshot
// watch"). It blocks until ctx is cancelled.
func Watch(ctx context.Context, t *term.Terminal, path string, onLoad func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("snapshot: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("snapshot: watch %s: %w", dir, err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := Load(t, path); err != nil {
			logging.Warnf("snapshot: initial load failed: %v", err)
		} else if onLoad != nil {
			onLoad()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := Load(t, path); err != nil {
				logging.Warnf("snapshot: reload failed: %v", err)
				continue
			}
			if onLoad != nil {
				onLoad()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warnf("snapshot: watcher error: %v", err)
		}
	}
}
