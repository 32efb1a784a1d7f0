// Package pixel converts packed video frame formats to canonical interleaved
// RGB. The converters are pure functions: no I/O, no shared state, and no
// per-pixel allocation. This is the hottest path in the monitor; rows are
// independent so the UYVY transform fans out across CPU cores.
package pixel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrUnsupportedFormat is returned when a frame carries a FourCC tag the
// converter does not understand. Callers treat it as "no frame this tick".
var ErrUnsupportedFormat = errors.New("pixel: unsupported format")

// RGB is a converted frame: 3 bytes per pixel, row-major, no row padding.
type RGB struct {
	Width  int
	Height int
	Pix    []byte
}

// NewRGB allocates an RGB frame sized for width x height pixels.
func NewRGB(width, height int) *RGB {
	return &RGB{Width: width, Height: height, Pix: make([]byte, width*height*3)}
}

// Resize grows or shrinks the pixel buffer in place so the frame holds
// width x height pixels, reusing the existing allocation when it is large
// enough.
func (f *RGB) Resize(width, height int) {
	n := width * height * 3
	if cap(f.Pix) < n {
		f.Pix = make([]byte, n)
	}
	f.Pix = f.Pix[:n]
	f.Width = width
	f.Height = height
}

// Convert transforms a raw frame buffer into a freshly allocated RGB frame.
// src must hold at least stride*height bytes; stride may exceed the active
// width*BytesPerPixel due to padding, and padding bytes are never read.
func Convert(src []byte, width, height, stride int, format Format) (*RGB, error) {
	dst := NewRGB(width, height)
	if err := ConvertInto(dst, src, width, height, stride, format); err != nil {
		return nil, err
	}
	return dst, nil
}

// ConvertInto is the allocation-free variant of Convert: it writes into dst,
// resizing its buffer only when the frame dimensions changed.
func ConvertInto(dst *RGB, src []byte, width, height, stride int, format Format) error {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("pixel: invalid dimensions %dx%d", width, height)
	}
	if stride < width*bpp {
		return fmt.Errorf("pixel: stride %d shorter than row of %d %s pixels", stride, width, format)
	}
	if len(src) < stride*height {
		return fmt.Errorf("pixel: buffer holds %d bytes, need %d", len(src), stride*height)
	}
	dst.Resize(width, height)

	switch format {
	case FormatUYVY:
		forEachRowBand(height, func(y0, y1 int) {
			uyvyRows(dst.Pix, src, width, stride, y0, y1)
		})
	case FormatBGRA, FormatBGRX:
		forEachRowBand(height, func(y0, y1 int) {
			packedRows(dst.Pix, src, width, stride, y0, y1, 2, 1, 0)
		})
	case FormatRGBA, FormatRGBX:
		forEachRowBand(height, func(y0, y1 int) {
			packedRows(dst.Pix, src, width, stride, y0, y1, 0, 1, 2)
		})
	}
	return nil
}

// parallelThreshold is the frame height below which fan-out costs more than
// it saves.
const parallelThreshold = 128

// forEachRowBand runs fn over [0,height) split into contiguous bands, one
// per worker. Small frames run on the calling goroutine.
func forEachRowBand(height int, fn func(y0, y1 int)) {
	workers := runtime.NumCPU()
	if height < parallelThreshold || workers <= 1 {
		fn(0, height)
		return
	}
	if workers > height {
		workers = height
	}
	band := (height + workers - 1) / workers
	var wg sync.WaitGroup
	for y := 0; y < height; y += band {
		end := y + band
		if end > height {
			end = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y, end)
	}
	wg.Wait()
}

// uyvyRows applies the fixed-point BT.601 inverse transform to rows
// [y0,y1). Each 4-byte group U Y0 V Y1 yields two RGB pixels sharing one
// chroma pair.
func uyvyRows(dst, src []byte, width, stride, y0, y1 int) {
	pairs := width / 2
	for y := y0; y < y1; y++ {
		row := src[y*stride : y*stride+width*2]
		out := dst[y*width*3 : (y+1)*width*3]
		for i := 0; i < pairs; i++ {
			u := int(row[i*4])
			l0 := int(row[i*4+1])
			v := int(row[i*4+2])
			l1 := int(row[i*4+3])

			cb := u - 128
			cr := v - 128
			rc := (409*cr + 128) >> 8
			gc := (-100*cb - 208*cr + 128) >> 8
			bc := (516*cb + 128) >> 8
			c0 := (298 * (l0 - 16)) >> 8
			c1 := (298 * (l1 - 16)) >> 8

			o := i * 6
			out[o] = clamp(c0 + rc)
			out[o+1] = clamp(c0 + gc)
			out[o+2] = clamp(c0 + bc)
			out[o+3] = clamp(c1 + rc)
			out[o+4] = clamp(c1 + gc)
			out[o+5] = clamp(c1 + bc)
		}
	}
}

// packedRows copies 4-byte packed pixels to RGB for rows [y0,y1), picking
// source channels by offset and dropping the alpha/padding byte.
func packedRows(dst, src []byte, width, stride, y0, y1 int, ri, gi, bi int) {
	for y := y0; y < y1; y++ {
		row := src[y*stride : y*stride+width*4]
		out := dst[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			out[x*3] = row[x*4+ri]
			out[x*3+1] = row[x*4+gi]
			out[x*3+2] = row[x*4+bi]
		}
	}
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
