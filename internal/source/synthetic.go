package source

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smithevan-qanc/ndi-monitor/internal/pixel"
)

// syntheticSpec describes one simulated source on the fake network.
type syntheticSpec struct {
	name   string
	width  int
	height int
	fps    int
}

var syntheticSpecs = []syntheticSpec{
	{"Camera 1 (Synthetic)", 1920, 1080, 30},
	{"Camera 2 (Synthetic)", 1280, 720, 30},
	{"Desktop Capture (Synthetic)", 1920, 1080, 60},
}

// SyntheticFinder lists the built-in simulated sources.
type SyntheticFinder struct{}

// ListSources returns the simulated source names after a short delay that
// stands in for network discovery. The delay never exceeds the timeout.
func (SyntheticFinder) ListSources(timeout time.Duration) ([]string, error) {
	delay := 5 * time.Millisecond
	if timeout < delay {
		delay = timeout
	}
	time.Sleep(delay)
	names := make([]string, len(syntheticSpecs))
	for i, s := range syntheticSpecs {
		names[i] = s.name
	}
	return names, nil
}

// Synthetic generates deterministic UYVY test-pattern frames at a fixed
// rate. The pattern depends only on the frame sequence number, so captures
// are reproducible across runs.
type Synthetic struct {
	spec     syntheticSpec
	interval time.Duration

	mu     sync.Mutex // serializes capture pacing
	next   time.Time
	closed bool

	seq  atomic.Uint64
	pool sync.Pool
}

// ConnectSynthetic resolves name against the simulated source list and
// returns a generator for it.
func ConnectSynthetic(name string) (Source, error) {
	for _, spec := range syntheticSpecs {
		if spec.name == name {
			s := &Synthetic{
				spec:     spec,
				interval: time.Second / time.Duration(spec.fps),
			}
			s.pool.New = func() any {
				return &RawFrame{buf: make([]byte, spec.width*2*spec.height)}
			}
			slog.Info("source: synthetic source connected",
				"name", name,
				"resolution", fmt.Sprintf("%dx%d", spec.width, spec.height),
				"fps", spec.fps,
			)
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, name)
}

func (s *Synthetic) Name() string { return s.spec.name }

// Capture paces frame delivery to the configured rate. When the next frame
// is due beyond the timeout it sleeps for the timeout and reports no frame,
// mirroring how a real receiver behaves on a slow source.
func (s *Synthetic) Capture(timeout time.Duration) (*RawFrame, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrClosed
	}
	now := time.Now()
	if s.next.IsZero() {
		s.next = now
	}
	wait := s.next.Sub(now)
	if wait > timeout {
		s.mu.Unlock()
		time.Sleep(timeout)
		return nil, false, nil
	}
	s.next = s.next.Add(s.interval)
	s.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}

	seq := s.seq.Add(1)
	frame := s.pool.Get().(*RawFrame)
	buf := frame.buf
	s.fill(buf, seq)

	*frame = RawFrame{
		Width:     s.spec.width,
		Height:    s.spec.height,
		Stride:    s.spec.width * 2,
		Format:    pixel.FormatUYVY,
		Data:      buf,
		Timestamp: time.Now(),
		Seq:       seq,
		TraceID:   uuid.NewString(),
		buf:       buf,
	}
	return frame, true, nil
}

// Release hands a frame back for reuse by a later Capture. Idempotent per
// frame.
func (s *Synthetic) Release(f *RawFrame) {
	if f == nil || f.Data == nil {
		return
	}
	f.Data = nil
	s.pool.Put(f)
}

func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		slog.Info("source: synthetic source closed",
			"name", s.spec.name,
			"frames_generated", s.seq.Load(),
		)
	}
	return nil
}

// fill paints a horizontal luma ramp that scrolls with seq, over chroma
// bands that cycle the frame through distinct hues. Valid UYVY: every
// 4-byte group is U Y0 V Y1.
func (s *Synthetic) fill(buf []byte, seq uint64) {
	w, h := s.spec.width, s.spec.height
	phase := int(seq * 4)
	for y := 0; y < h; y++ {
		row := buf[y*w*2 : (y+1)*w*2]
		// Three chroma bands: bluish, neutral, reddish.
		var u, v byte
		switch (3 * y) / h {
		case 0:
			u, v = 192, 96
		case 1:
			u, v = 128, 128
		default:
			u, v = 96, 192
		}
		for x := 0; x < w; x += 2 {
			luma := byte(16 + (x+phase)%220)
			row[x*2] = u
			row[x*2+1] = luma
			row[x*2+2] = v
			row[x*2+3] = luma
		}
	}
}
