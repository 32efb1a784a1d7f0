package display

import (
	"image"
	"testing"
)

func TestScalerPlacementPreservesAspect(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		want       image.Rectangle
	}{
		{"same size", 1920, 1080, image.Rect(0, 0, 1920, 1080)},
		{"upscale 720p", 1280, 720, image.Rect(0, 0, 1920, 1080)},
		{"pillarbox 4:3", 1440, 1080, image.Rect(240, 0, 1680, 1080)},
		{"letterbox ultrawide", 3840, 1080, image.Rect(0, 270, 1920, 810)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScaler(1920, 1080)
			got := s.placement(tt.srcW, tt.srcH)
			if got != tt.want {
				t.Errorf("placement(%dx%d) = %v, want %v", tt.srcW, tt.srcH, got, tt.want)
			}
		})
	}
}

func TestScalerMemoizesPlacement(t *testing.T) {
	s := newScaler(1920, 1080)

	for i := 0; i < 10; i++ {
		s.placement(1280, 720)
	}
	if s.recomputes != 1 {
		t.Errorf("recomputes = %d after repeated same-size calls, want 1", s.recomputes)
	}

	s.placement(640, 480)
	s.placement(1280, 720)
	if s.recomputes != 3 {
		t.Errorf("recomputes = %d after two size changes, want 3", s.recomputes)
	}
}

func TestScalerDrawCenters(t *testing.T) {
	s := newScaler(200, 100)
	dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
		src.Pix[i+3] = 255
	}

	rect := s.Draw(dst, src)
	want := image.Rect(50, 0, 150, 100)
	if rect != want {
		t.Fatalf("draw rect = %v, want %v", rect, want)
	}

	if r, _, _, _ := dst.At(100, 50).RGBA(); r == 0 {
		t.Error("center pixel not painted")
	}
	if r, _, _, _ := dst.At(10, 50).RGBA(); r != 0 {
		t.Error("pillarbox margin painted")
	}
}
