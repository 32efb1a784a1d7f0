package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func newTestRing(capacity int) (*RingHandler, *slog.Logger) {
	h := NewRingHandler(slog.NewTextHandler(io.Discard, nil), capacity)
	return h, slog.New(h)
}

func TestRingHandlerCapturesEntries(t *testing.T) {
	ring, logger := newTestRing(10)

	logger.Info("source connected", "source", "CAM (Channel 1)")
	logger.Warn("capture failed")

	entries := ring.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != "INFO" || entries[1].Level != "WARN" {
		t.Errorf("levels = %q, %q", entries[0].Level, entries[1].Level)
	}
	if entries[0].Message != "source connected source=CAM (Channel 1)" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries need distinct non-empty ids")
	}
}

func TestRingHandlerEvictsOldest(t *testing.T) {
	ring, logger := newTestRing(5)

	for i := 0; i < 8; i++ {
		logger.Info(fmt.Sprintf("event %d", i))
	}

	entries := ring.Entries()
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}
	if entries[0].Message != "event 3" || entries[4].Message != "event 7" {
		t.Errorf("window = %q .. %q, want event 3 .. event 7", entries[0].Message, entries[4].Message)
	}
}

func TestRingHandlerNotify(t *testing.T) {
	ring, logger := newTestRing(5)
	calls := 0
	ring.SetNotify(func() { calls++ })

	logger.Info("one")
	logger.Info("two")
	if calls != 2 {
		t.Errorf("notify called %d times, want 2", calls)
	}
}

func TestRingHandlerWithAttrsSharesRing(t *testing.T) {
	ring, _ := newTestRing(5)
	child := slog.New(ring.WithAttrs([]slog.Attr{slog.String("pkg", "web")}))

	child.Info("hello")
	if len(ring.Entries()) != 1 {
		t.Error("entry logged through derived handler not retained")
	}
}

func TestRingHandlerRespectsLevel(t *testing.T) {
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	ring := NewRingHandler(inner, 5)
	logger := slog.New(ring)

	logger.Debug("hidden")
	if ring.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug enabled despite info-level inner handler")
	}
	logger.Info("shown")
	if got := len(ring.Entries()); got != 1 {
		t.Errorf("got %d entries, want 1", got)
	}
}
