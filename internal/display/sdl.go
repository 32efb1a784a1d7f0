package display

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

// SDLSurface presents frames fullscreen through SDL2 with a streaming
// texture. It must be created and used from the main goroutine; SDL's
// video subsystem is not thread safe.
type SDLSurface struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	width, height int
}

// NewSDLSurface opens the display output. A zero width and height selects
// the native desktop resolution.
func NewSDLSurface(width, height int) (*SDLSurface, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("display: sdl init: %w", err)
	}

	flags := uint32(sdl.WINDOW_SHOWN)
	w, h := int32(width), int32(height)
	if width == 0 {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
		mode, err := sdl.GetDesktopDisplayMode(0)
		if err != nil {
			sdl.Quit()
			return nil, fmt.Errorf("display: query desktop mode: %w", err)
		}
		w, h = mode.W, mode.H
	} else {
		flags |= sdl.WINDOW_FULLSCREEN
	}

	window, err := sdl.CreateWindow("ndi-monitor",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, w, h, flags)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("display: create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("display: create renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32),
		sdl.TEXTUREACCESS_STREAMING, w, h)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("display: create texture: %w", err)
	}

	sdl.ShowCursor(sdl.DISABLE)

	return &SDLSurface{
		window:   window,
		renderer: renderer,
		texture:  texture,
		width:    int(w),
		height:   int(h),
	}, nil
}

func (s *SDLSurface) Size() (int, int) { return s.width, s.height }

func (s *SDLSurface) Present(img *image.RGBA) error {
	// Keep the window responsive; all events are discarded.
	for sdl.PollEvent() != nil {
	}

	if err := s.texture.Update(nil, unsafe.Pointer(&img.Pix[0]), img.Stride); err != nil {
		return fmt.Errorf("display: texture update: %w", err)
	}
	if err := s.renderer.Copy(s.texture, nil, nil); err != nil {
		return fmt.Errorf("display: render copy: %w", err)
	}
	s.renderer.Present()
	return nil
}

func (s *SDLSurface) Close() error {
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}
