// Package display drives the HDMI output: it owns the render loop, the
// blank fade, aspect-correct scaling and the text overlays, and presents
// composed frames through a Surface.
package display

import (
	"image"
	"sync"
)

// Surface is a fixed-size output that accepts fully composed RGBA frames.
// Implementations are not required to be safe for concurrent use; the
// render loop is the only caller.
type Surface interface {
	// Size returns the output dimensions in pixels.
	Size() (width, height int)
	// Present displays img, which always matches Size.
	Present(img *image.RGBA) error
	// Close releases the output.
	Close() error
}

// MemorySurface keeps the last presented frame in memory. It backs tests
// and headless runs.
type MemorySurface struct {
	width, height int

	mu        sync.Mutex
	last      *image.RGBA
	presented int
}

// NewMemorySurface returns an in-memory surface of the given size.
func NewMemorySurface(width, height int) *MemorySurface {
	return &MemorySurface{width: width, height: height}
}

func (s *MemorySurface) Size() (int, int) { return s.width, s.height }

func (s *MemorySurface) Present(img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.Rect != img.Rect {
		s.last = image.NewRGBA(img.Rect)
	}
	copy(s.last.Pix, img.Pix)
	s.presented++
	return nil
}

func (s *MemorySurface) Close() error { return nil }

// Last returns a snapshot of the most recently presented frame, or nil.
func (s *MemorySurface) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	out := image.NewRGBA(s.last.Rect)
	copy(out.Pix, s.last.Pix)
	return out
}

// Presented returns the number of frames presented so far.
func (s *MemorySurface) Presented() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}
