package web

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/smithevan-qanc/ndi-monitor/internal/monitor"
	"github.com/smithevan-qanc/ndi-monitor/internal/pixel"
)

const streamBoundary = "frame"

// streamer serves the MJPEG preview. Each reader runs its own capture
// loop against the shared source snapshot, so readers never gate each
// other or the display.
type streamer struct {
	state   *monitor.State
	readers atomic.Int64
}

func (s *streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.NewString()
	n := s.readers.Add(1)
	defer s.readers.Add(-1)
	slog.Info("web: mjpeg reader connected",
		"client_id", clientID, "remote", r.RemoteAddr, "readers", n)
	defer slog.Info("web: mjpeg reader disconnected", "client_id", clientID)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	flusher, _ := w.(http.Flusher)
	mw := multipart.NewWriter(w)
	mw.SetBoundary(streamBoundary)

	rgb := pixel.NewRGB(0, 0)
	var rgba, scaled *image.RGBA
	var buf bytes.Buffer

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		src, settings := s.state.Snapshot()
		if src == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		frame, ok, err := src.Capture(time.Second)
		if err != nil {
			slog.Warn("web: mjpeg capture failed", "client_id", clientID, "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		err = pixel.ConvertInto(rgb, frame.Data, frame.Width, frame.Height, frame.Stride, frame.Format)
		src.Release(frame)
		if err != nil {
			slog.Warn("web: mjpeg conversion failed", "client_id", clientID, "error", err)
			continue
		}

		img := toRGBA(&rgba, rgb)
		if settings.OutputWidth > 0 && settings.OutputHeight > 0 {
			img = resize(&scaled, img, settings.OutputWidth, settings.OutputHeight)
		}

		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: settings.JPEGQuality}); err != nil {
			slog.Warn("web: jpeg encode failed", "client_id", clientID, "error", err)
			continue
		}
		if err := writePart(mw, buf.Bytes()); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writePart(mw *multipart.Writer, jpg []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", fmt.Sprintf("%d", len(jpg)))

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(jpg)
	return err
}

// toRGBA expands the packed RGB buffer into *dst, reallocating only on
// size changes.
func toRGBA(dst **image.RGBA, src *pixel.RGB) *image.RGBA {
	rect := image.Rect(0, 0, src.Width, src.Height)
	if *dst == nil || (*dst).Rect != rect {
		*dst = image.NewRGBA(rect)
	}
	out := *dst
	sp, dp := src.Pix, out.Pix
	for si, di := 0, 0; si+2 < len(sp); si, di = si+3, di+4 {
		dp[di] = sp[si]
		dp[di+1] = sp[si+1]
		dp[di+2] = sp[si+2]
		dp[di+3] = 255
	}
	return out
}

func resize(dst **image.RGBA, src *image.RGBA, w, h int) *image.RGBA {
	rect := image.Rect(0, 0, w, h)
	if *dst == nil || (*dst).Rect != rect {
		*dst = image.NewRGBA(rect)
	}
	draw.ApproxBiLinear.Scale(*dst, rect, src, src.Rect, draw.Src, nil)
	return *dst
}
