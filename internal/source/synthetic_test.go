package source

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/smithevan-qanc/ndi-monitor/internal/pixel"
)

func TestConnectSyntheticUnknownName(t *testing.T) {
	_, err := ConnectSynthetic("Does Not Exist")
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestSyntheticFinderListsAllSources(t *testing.T) {
	names, err := SyntheticFinder{}.ListSources(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("ListSources failed: %v", err)
	}
	if len(names) != len(syntheticSpecs) {
		t.Fatalf("got %d names, want %d", len(names), len(syntheticSpecs))
	}
	for _, name := range names {
		if _, err := ConnectSynthetic(name); err != nil {
			t.Errorf("listed source %q does not connect: %v", name, err)
		}
	}
}

func TestSyntheticCaptureDeliversValidUYVY(t *testing.T) {
	src, err := ConnectSynthetic("Camera 2 (Synthetic)")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer src.Close()

	frame, ok, err := src.Capture(time.Second)
	if err != nil || !ok {
		t.Fatalf("capture failed: ok=%v err=%v", ok, err)
	}
	defer src.Release(frame)

	if frame.Width != 1280 || frame.Height != 720 {
		t.Errorf("got %dx%d, want 1280x720", frame.Width, frame.Height)
	}
	if frame.Format != pixel.FormatUYVY {
		t.Errorf("got format %s, want UYVY", frame.Format)
	}
	if frame.Stride != frame.Width*2 {
		t.Errorf("got stride %d, want %d", frame.Stride, frame.Width*2)
	}
	if len(frame.Data) != frame.Stride*frame.Height {
		t.Errorf("got %d data bytes, want %d", len(frame.Data), frame.Stride*frame.Height)
	}
	if frame.Seq != 1 {
		t.Errorf("first frame seq = %d, want 1", frame.Seq)
	}
	if frame.TraceID == "" {
		t.Error("frame missing trace ID")
	}

	// The whole frame must convert without error.
	if _, err := pixel.Convert(frame.Data, frame.Width, frame.Height, frame.Stride, frame.Format); err != nil {
		t.Errorf("generated frame does not convert: %v", err)
	}
}

func TestSyntheticPatternIsDeterministic(t *testing.T) {
	capture := func() []byte {
		src, err := ConnectSynthetic("Camera 1 (Synthetic)")
		if err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		defer src.Close()
		frame, ok, err := src.Capture(time.Second)
		if err != nil || !ok {
			t.Fatalf("capture failed: ok=%v err=%v", ok, err)
		}
		data := append([]byte(nil), frame.Data...)
		src.Release(frame)
		return data
	}

	if !bytes.Equal(capture(), capture()) {
		t.Error("frame 1 differs between two fresh sources")
	}
}

func TestSyntheticCaptureTimeout(t *testing.T) {
	src, err := ConnectSynthetic("Camera 1 (Synthetic)")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer src.Close()

	// First capture is due immediately; the next is one interval away, so
	// a sub-interval timeout must report no frame without error.
	if _, ok, err := src.Capture(time.Second); err != nil || !ok {
		t.Fatalf("priming capture failed: ok=%v err=%v", ok, err)
	}
	start := time.Now()
	frame, ok, err := src.Capture(5 * time.Millisecond)
	if err != nil {
		t.Fatalf("capture errored: %v", err)
	}
	if ok {
		src.Release(frame)
		t.Fatal("expected no frame within 5ms of a 30fps source")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("timed-out capture took %v, should honor the timeout", elapsed)
	}
}

func TestSyntheticRecyclesFrames(t *testing.T) {
	src, err := ConnectSynthetic("Camera 2 (Synthetic)")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer src.Close()

	frame, ok, err := src.Capture(time.Second)
	if err != nil || !ok {
		t.Fatalf("capture failed: ok=%v err=%v", ok, err)
	}
	first := &frame.Data[0]
	src.Release(frame)
	src.Release(frame) // double release must be a no-op

	frame2, ok, err := src.Capture(time.Second)
	if err != nil || !ok {
		t.Fatalf("second capture failed: ok=%v err=%v", ok, err)
	}
	defer src.Release(frame2)

	if &frame2.Data[0] != first {
		t.Error("released buffer not reused by the next capture")
	}
	if frame2.Seq != 2 {
		t.Errorf("recycled frame seq = %d, want 2", frame2.Seq)
	}
}

func TestSyntheticCaptureAfterClose(t *testing.T) {
	src, err := ConnectSynthetic("Camera 1 (Synthetic)")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	src.Close()
	src.Close() // idempotent

	if _, _, err := src.Capture(time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
