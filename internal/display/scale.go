package display

import (
	"image"

	"golang.org/x/image/draw"
)

// scaler fits source frames onto a fixed destination, preserving aspect
// ratio and centering the result. The placement rectangle and intermediate
// buffer are memoized on the source dimensions, so steady streams pay the
// geometry cost once.
type scaler struct {
	dstW, dstH int

	srcW, srcH int
	rect       image.Rectangle
	recomputes int
}

func newScaler(dstW, dstH int) *scaler {
	return &scaler{dstW: dstW, dstH: dstH}
}

// placement returns the centered destination rectangle for a srcW x srcH
// frame, recomputing only when the source size changes.
func (s *scaler) placement(srcW, srcH int) image.Rectangle {
	if srcW == s.srcW && srcH == s.srcH && !s.rect.Empty() {
		return s.rect
	}
	s.srcW, s.srcH = srcW, srcH
	s.recomputes++

	scale := float64(s.dstW) / float64(srcW)
	if h := float64(s.dstH) / float64(srcH); h < scale {
		scale = h
	}
	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	x := (s.dstW - w) / 2
	y := (s.dstH - h) / 2
	s.rect = image.Rect(x, y, x+w, y+h)
	return s.rect
}

// Draw scales src onto dst at its memoized centered placement. Callers
// clear dst when the placement changes; Draw itself only touches the
// placement rectangle.
func (s *scaler) Draw(dst *image.RGBA, src *image.RGBA) image.Rectangle {
	rect := s.placement(src.Rect.Dx(), src.Rect.Dy())
	if rect.Dx() == src.Rect.Dx() && rect.Dy() == src.Rect.Dy() {
		draw.Draw(dst, rect, src, src.Rect.Min, draw.Src)
		return rect
	}
	draw.ApproxBiLinear.Scale(dst, rect, src, src.Rect, draw.Src, nil)
	return rect
}
