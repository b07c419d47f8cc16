// Package watcher watches a project's source media files on disk. Recordings
// live outside the app's control; when one is modified or deleted while its
// project is open, the session surfaces remain accurate only if someone
// notices.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a set of file paths. Watch may be called repeatedly to
// grow the set; Reset drops all watched paths; Stop tears the watcher down.
type Watcher interface {
	Watch(ctx context.Context, path string) error
	Reset() error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FSWatcher is an fsnotify-backed Watcher. The event loop starts lazily on
// the first Watch call and exits when its context is cancelled or Stop is
// called.
type FSWatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	callback func(path string, event EventType)
	running  bool
}

func NewFSWatcher(logger *slog.Logger) *FSWatcher {
	return &FSWatcher{logger: logger}
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

// Watch adds path to the watched set, initializing the underlying watcher and
// its event loop on first use.
func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create file watcher: %w", err)
		}
		w.fsw = fsw
	}
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if !w.running {
		w.running = true
		go w.loop(ctx, w.fsw)
	}
	w.logger.Debug("watching media file", "path", path)
	return nil
}

// Reset drops every watched path but keeps the watcher and its loop alive, so
// the next project's sources can be added without re-arming.
func (w *FSWatcher) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	for _, p := range w.fsw.WatchList() {
		if err := w.fsw.Remove(p); err != nil {
			return fmt.Errorf("unwatch %s: %w", p, err)
		}
	}
	return nil
}

// Stop closes the underlying watcher, ending the event loop.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	w.fsw = nil
	w.running = false
	return err
}

func (w *FSWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			et, relevant := translate(ev.Op)
			if !relevant {
				continue
			}
			w.mu.Lock()
			cb := w.callback
			w.mu.Unlock()
			if cb != nil {
				cb(ev.Name, et)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func translate(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		// A rename-away looks like deletion from the project's point of view.
		return EventDelete, true
	default:
		return 0, false
	}
}
