// Package monitor owns the reconfiguration channel: one guarded aggregate
// holding the active frame source and the pipeline settings. Both sinks
// snapshot it every tick; an HTTP surface and a shared-config watcher mutate
// it while the pipeline runs.
package monitor

import (
	"log/slog"
	"sync"

	"github.com/smithevan-qanc/ndi-monitor/internal/config"
	"github.com/smithevan-qanc/ndi-monitor/internal/source"
)

// State is the single mutual-exclusion boundary of the pipeline. Readers
// acquire the lock only to snapshot the current handle and settings and
// release it before any blocking capture or encode work; the lock is never
// held across a capture call, nor across source construction.
type State struct {
	connect source.Connector

	mu       sync.Mutex
	active   source.Source
	name     string // name of the connected source, "" when none
	pending  string // requested but not yet connected, "" when settled
	settings Settings

	wake chan struct{} // nudges the reconcile loop, 1-deep
}

// NewState builds a State that establishes sources through connect.
func NewState(connect source.Connector) *State {
	return &State{
		connect:  connect,
		settings: DefaultSettings(),
		wake:     make(chan struct{}, 1),
	}
}

// Snapshot returns the current source handle and a copy of the settings.
// The handle may be nil, meaning "no source selected"; sinks render their
// fallback in that case.
func (st *State) Snapshot() (source.Source, Settings) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active, st.settings
}

// Selected reports the connected source name and any pending selection.
func (st *State) Selected() (active, pending string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.name, st.pending
}

// UpdateSettings validates and clamps u, publishes the merged settings, and
// returns them. On validation failure the previous settings stay in effect.
func (st *State) UpdateSettings(u Update) (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	merged, err := st.settings.apply(u)
	if err != nil {
		return st.settings, err
	}
	st.settings = merged
	slog.Info("monitor: settings updated",
		"jpeg_quality", merged.JPEGQuality,
		"output_size", merged.OutputWidth*merged.OutputHeight,
		"blank", merged.Blank,
		"show_fps", merged.ShowFPS,
	)
	return merged, nil
}

// SelectSource closes and discards any current source, connects to name and
// publishes the new handle atomically. On connect failure the source stays
// nil but name is kept pending so the reconcile loop retries it later; the
// error is still reported to the caller. An empty name clears the selection.
//
// Readers never observe a half-constructed handle: the swap publishes under
// the lock, while the slow connect itself runs outside it.
func (st *State) SelectSource(name string) error {
	st.mu.Lock()
	old := st.active
	st.active = nil
	st.name = ""
	st.pending = name
	st.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if name == "" {
		st.mu.Lock()
		st.pending = ""
		st.mu.Unlock()
		slog.Info("monitor: source selection cleared")
		return nil
	}

	src, err := st.connect(name)
	if err != nil {
		slog.Warn("monitor: source connect failed", "name", name, "error", err)
		return err
	}

	st.mu.Lock()
	if st.pending != name {
		// A newer selection raced us while connecting; drop this handle.
		st.mu.Unlock()
		src.Close()
		return nil
	}
	st.active = src
	st.name = name
	st.pending = ""
	st.mu.Unlock()

	slog.Info("monitor: source selected", "name", name)
	return nil
}

// RequestSource records name as the wanted source and wakes the reconcile
// loop to connect it in the background. Unlike SelectSource it never blocks
// on connection setup.
func (st *State) RequestSource(name string) {
	st.mu.Lock()
	if name == st.name && st.pending == "" {
		st.mu.Unlock()
		return
	}
	st.pending = name
	old := st.active
	if name == "" {
		st.active = nil
		st.name = ""
		st.pending = ""
	}
	st.mu.Unlock()

	if name == "" {
		if old != nil {
			old.Close()
		}
		return
	}
	st.notify()
}

// ApplyDocument folds a shared-config snapshot into the running settings
// and requests a source switch when the selected name changed. Called by
// the direct sink on its poll interval.
func (st *State) ApplyDocument(doc config.Document) {
	st.mu.Lock()
	st.settings.Blank = doc.HDMIBlank
	if doc.NoConnectionMessage != "" {
		st.settings.Message = doc.NoConnectionMessage
	}
	st.settings.Subtext = doc.NoConnectionSubtext
	st.settings.ShowFPS = doc.ShowFPS
	st.settings.DeviceName = doc.DeviceName
	current, pending := st.name, st.pending
	st.mu.Unlock()

	if doc.SelectedSource != current && doc.SelectedSource != pending {
		slog.Info("monitor: selected source changed",
			"from", current,
			"to", doc.SelectedSource,
		)
		st.RequestSource(doc.SelectedSource)
	}
}

// Close discards the active source handle.
func (st *State) Close() {
	st.mu.Lock()
	old := st.active
	st.active = nil
	st.name = ""
	st.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (st *State) notify() {
	select {
	case st.wake <- struct{}{}:
	default:
	}
}
