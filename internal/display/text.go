package display

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	messageColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	subtextColor = color.RGBA{R: 170, G: 170, B: 170, A: 255}
	fpsColor     = color.RGBA{R: 255, G: 255, A: 255}
)

// drawCenteredText draws lines of text centered horizontally, stacked
// around the vertical center of dst. Empty lines are skipped but still
// advance the layout.
func drawCenteredText(dst *image.RGBA, lines []string, colors []color.RGBA) {
	face := basicfont.Face7x13
	bounds := dst.Bounds()
	lineHeight := face.Metrics().Height.Ceil() + 6
	top := (bounds.Dy() - lineHeight*len(lines)) / 2

	for i, line := range lines {
		if line == "" {
			continue
		}
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(colors[i]),
			Face: face,
		}
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P(bounds.Min.X+(bounds.Dx()-w)/2, bounds.Min.Y+top+lineHeight*i+face.Ascent)
		d.DrawString(line)
	}
}

// drawFPS draws the frame rate readout in the top-left corner.
func drawFPS(dst *image.RGBA, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fpsColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(dst.Bounds().Min.X+12, dst.Bounds().Min.Y+10+basicfont.Face7x13.Ascent),
	}
	d.DrawString(text)
}
