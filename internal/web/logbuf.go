// Package web exposes the control surface of the monitor: the JSON API,
// the websocket push channel and the MJPEG preview stream.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLogCapacity bounds the in-memory log ring.
const DefaultLogCapacity = 200

// LogEntry is one captured log record as served by the API.
type LogEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type logRing struct {
	mu      sync.Mutex
	entries []LogEntry
	start   int
	count   int
	notify  func()
}

// RingHandler is a slog.Handler that forwards records to an inner handler
// and keeps the newest entries in a fixed-size ring for the web interface.
type RingHandler struct {
	inner slog.Handler
	ring  *logRing
}

// NewRingHandler wraps inner, retaining up to capacity records.
func NewRingHandler(inner slog.Handler, capacity int) *RingHandler {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &RingHandler{
		inner: inner,
		ring:  &logRing{entries: make([]LogEntry, capacity)},
	}
}

// SetNotify registers fn to run after each appended entry. It must be set
// before logging starts.
func (h *RingHandler) SetNotify(fn func()) { h.ring.notify = fn }

func (h *RingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RingHandler) Handle(ctx context.Context, rec slog.Record) error {
	var sb strings.Builder
	sb.WriteString(rec.Message)
	rec.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})

	h.ring.append(LogEntry{
		ID:        uuid.NewString(),
		Timestamp: rec.Time.Format(time.RFC3339),
		Level:     rec.Level.String(),
		Message:   sb.String(),
	})
	return h.inner.Handle(ctx, rec)
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RingHandler{inner: h.inner.WithAttrs(attrs), ring: h.ring}
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	return &RingHandler{inner: h.inner.WithGroup(name), ring: h.ring}
}

// Entries returns the retained entries, oldest first.
func (h *RingHandler) Entries() []LogEntry {
	r := h.ring
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

func (r *logRing) append(e LogEntry) {
	r.mu.Lock()
	if r.count == len(r.entries) {
		r.entries[r.start] = e
		r.start = (r.start + 1) % len(r.entries)
	} else {
		r.entries[(r.start+r.count)%len(r.entries)] = e
		r.count++
	}
	notify := r.notify
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
}
