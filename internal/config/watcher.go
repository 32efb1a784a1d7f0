package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher publishes a fresh Document snapshot whenever the shared config
// file changes. It combines fsnotify events on the containing directory
// (the store replaces the file by rename, so watching the file itself
// would lose the watch) with a one second poll as a fallback for
// filesystems that do not deliver events.
type Watcher struct {
	store   *Store
	updates chan Document
	poll    time.Duration
}

// NewWatcher returns a watcher for the given store. Updates carries at
// most one pending snapshot; a newer snapshot replaces an undelivered
// older one.
func NewWatcher(store *Store) *Watcher {
	return &Watcher{
		store:   store,
		updates: make(chan Document, 1),
		poll:    time.Second,
	}
}

// Updates returns the channel of document snapshots.
func (w *Watcher) Updates() <-chan Document { return w.updates }

// Run watches until ctx is cancelled. It always pushes one initial
// snapshot so consumers start from the persisted state.
func (w *Watcher) Run(ctx context.Context) {
	last := w.store.Load()
	w.push(last)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config: fsnotify unavailable, polling only", "error", err)
	} else {
		defer fsw.Close()
		dir := filepath.Dir(w.store.Path())
		if err := fsw.Add(dir); err != nil {
			slog.Warn("config: failed to watch config directory", "dir", dir, "error", err)
		}
	}

	var events chan fsnotify.Event
	var errors chan error
	if fsw != nil {
		events = fsw.Events
		errors = fsw.Errors
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Name != w.store.Path() {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
		case err := <-errors:
			slog.Warn("config: watch error", "error", err)
			continue
		case <-ticker.C:
		}

		doc := w.store.Load()
		if doc == last {
			continue
		}
		last = doc
		slog.Debug("config: shared config changed", "selected_source", doc.SelectedSource)
		w.push(doc)
	}
}

func (w *Watcher) push(doc Document) {
	select {
	case <-w.updates:
	default:
	}
	w.updates <- doc
}
