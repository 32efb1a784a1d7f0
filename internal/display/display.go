package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"time"

	"github.com/smithevan-qanc/ndi-monitor/internal/config"
	"github.com/smithevan-qanc/ndi-monitor/internal/monitor"
	"github.com/smithevan-qanc/ndi-monitor/internal/pixel"
	"github.com/smithevan-qanc/ndi-monitor/internal/source"
)

const captureTimeout = 30 * time.Millisecond

// Renderer owns the display loop. Each iteration folds in pending
// configuration, captures at most one frame, advances the blank fade and
// presents a composed frame to the surface. The loop is not frame rate
// capped; it paces itself on the capture timeout when no frames arrive.
type Renderer struct {
	state   *monitor.State
	surface Surface
	updates <-chan config.Document
	fade    *Fade
	scale   *scaler
	fps     *fpsCounter

	// reused between iterations to keep the loop allocation free
	rgb      *pixel.RGB
	srcImg   *image.RGBA
	content  *image.RGBA
	back     *image.RGBA
	lastRect image.Rectangle
	showing  bool
}

// NewRenderer returns a renderer presenting to surface. updates carries
// shared configuration snapshots and may be nil.
func NewRenderer(state *monitor.State, surface Surface, updates <-chan config.Document, fadeDuration time.Duration) *Renderer {
	w, h := surface.Size()
	return &Renderer{
		state:   state,
		surface: surface,
		updates: updates,
		fade:    NewFade(fadeDuration),
		scale:   newScaler(w, h),
		fps:     newFPSCounter(),
		rgb:     pixel.NewRGB(0, 0),
		content: image.NewRGBA(image.Rect(0, 0, w, h)),
		back:    image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// Run drives the display until ctx is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	slog.Info("display: render loop started")
	defer slog.Info("display: render loop stopped")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc := <-r.updates:
			r.state.ApplyDocument(doc)
		default:
		}

		now := time.Now()
		dt := now.Sub(last)
		last = now

		src, settings := r.state.Snapshot()

		blanked, cleared := r.fade.Advance(settings.Blank, dt)
		if blanked {
			slog.Info("display: output fully blanked")
		}
		if cleared {
			slog.Info("display: output fully cleared")
		}

		if r.fade.FullyBlanked() {
			fillBlack(r.back)
			if err := r.surface.Present(r.back); err != nil {
				return err
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		gotFrame := false
		if src == nil {
			r.renderFallback(settings)
		} else {
			frame, ok, err := src.Capture(captureTimeout)
			switch {
			case err != nil:
				slog.Warn("display: capture failed", "source", src.Name(), "error", err)
			case ok:
				if err := r.renderFrame(frame); err != nil {
					slog.Warn("display: frame render failed",
						"source", src.Name(), "trace_id", frame.TraceID, "error", err)
				} else {
					gotFrame = true
				}
				src.Release(frame)
			}
			if !r.showing {
				// nothing decoded yet from this source
				r.renderFallback(settings)
			}
		}

		r.compose(settings)
		if err := r.surface.Present(r.back); err != nil {
			return err
		}
		r.fps.Tick()

		switch {
		case src == nil:
			time.Sleep(100 * time.Millisecond)
		case !gotFrame:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// renderFrame converts the raw frame and scales it onto the content buffer.
func (r *Renderer) renderFrame(frame *source.RawFrame) error {
	if err := pixel.ConvertInto(r.rgb, frame.Data, frame.Width, frame.Height, frame.Stride, frame.Format); err != nil {
		return err
	}

	rect := image.Rect(0, 0, frame.Width, frame.Height)
	if r.srcImg == nil || r.srcImg.Rect != rect {
		r.srcImg = image.NewRGBA(rect)
	}
	rgbToRGBA(r.srcImg, r.rgb)

	placed := r.scale.placement(frame.Width, frame.Height)
	if placed != r.lastRect {
		// source geometry changed, clear the stale letterbox borders
		fillBlack(r.content)
		r.lastRect = placed
	}
	r.scale.Draw(r.content, r.srcImg)
	r.showing = true
	return nil
}

// rgbToRGBA expands packed 24-bit RGB into dst with opaque alpha.
func rgbToRGBA(dst *image.RGBA, src *pixel.RGB) {
	sp, dp := src.Pix, dst.Pix
	for si, di := 0, 0; si+2 < len(sp); si, di = si+3, di+4 {
		dp[di] = sp[si]
		dp[di+1] = sp[si+1]
		dp[di+2] = sp[si+2]
		dp[di+3] = 255
	}
}

// compose builds the back buffer from the content, fade overlay and FPS
// readout.
func (r *Renderer) compose(settings monitor.Settings) {
	copy(r.back.Pix, r.content.Pix)

	if a := r.fade.Alpha(); a > 0 {
		overlay := image.NewUniform(color.RGBA{A: a})
		draw.Draw(r.back, r.back.Rect, overlay, image.Point{}, draw.Over)
	}

	if settings.ShowFPS {
		drawFPS(r.back, fmt.Sprintf("%.1f FPS", r.fps.Rate()))
	}
}

// renderFallback paints the no-source message onto the content buffer.
func (r *Renderer) renderFallback(settings monitor.Settings) {
	fillBlack(r.content)
	r.showing = false

	active, pending := r.state.Selected()
	name := active
	if name == "" {
		name = pending
	}

	w, h := r.surface.Size()
	vars := templateVars(name, w, h)
	msg := ExpandTemplate(settings.Message, vars)
	sub := ExpandTemplate(settings.Subtext, vars)

	drawCenteredText(r.content,
		[]string{msg, "", sub},
		[]color.RGBA{messageColor, {}, subtextColor})
}

func fillBlack(img *image.RGBA) {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = 0
		pix[i+1] = 0
		pix[i+2] = 0
		pix[i+3] = 255
	}
}
