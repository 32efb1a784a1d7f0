package display

import (
	"context"
	"testing"
	"time"

	"github.com/smithevan-qanc/ndi-monitor/internal/monitor"
	"github.com/smithevan-qanc/ndi-monitor/internal/source"
)

func runRenderer(t *testing.T, st *monitor.State, surface *MemorySurface, d time.Duration) {
	t.Helper()
	r := NewRenderer(st, surface, nil, 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := r.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRendererFallbackMessage(t *testing.T) {
	st := monitor.NewState(source.ConnectSynthetic)
	defer st.Close()
	surface := NewMemorySurface(320, 240)

	runRenderer(t, st, surface, 300*time.Millisecond)

	if surface.Presented() == 0 {
		t.Fatal("no frames presented")
	}
	img := surface.Last()
	lit := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 || img.Pix[i+1] > 0 || img.Pix[i+2] > 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("fallback frame is entirely black, expected message text")
	}
}

func TestRendererPresentsSourceFrames(t *testing.T) {
	st := monitor.NewState(source.ConnectSynthetic)
	defer st.Close()
	if err := st.SelectSource("Camera 2 (Synthetic)"); err != nil {
		t.Fatal(err)
	}
	surface := NewMemorySurface(320, 240)

	runRenderer(t, st, surface, 500*time.Millisecond)

	img := surface.Last()
	if img == nil {
		t.Fatal("nothing presented")
	}
	// The synthetic pattern is a luma ramp, so the frame cannot be flat black.
	var max byte
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > max {
			max = img.Pix[i]
		}
	}
	if max < 32 {
		t.Errorf("brightest red channel = %d, expected visible pattern", max)
	}
}

func TestRendererBlanksToBlack(t *testing.T) {
	st := monitor.NewState(source.ConnectSynthetic)
	defer st.Close()
	if err := st.SelectSource("Camera 1 (Synthetic)"); err != nil {
		t.Fatal(err)
	}
	blank := true
	if _, err := st.UpdateSettings(monitor.Update{Blank: &blank}); err != nil {
		t.Fatal(err)
	}
	surface := NewMemorySurface(320, 240)

	runRenderer(t, st, surface, 400*time.Millisecond)

	img := surface.Last()
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 {
			t.Fatalf("pixel %d not black after blank fade: %v", i/4, img.Pix[i:i+4])
		}
	}
}
