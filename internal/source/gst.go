package source

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/smithevan-qanc/ndi-monitor/internal/pixel"
)

// gstFormats maps GStreamer raw format names to frame format tags.
var gstFormats = map[string]pixel.Format{
	"UYVY": pixel.FormatUYVY,
	"BGRA": pixel.FormatBGRA,
	"BGRx": pixel.FormatBGRX,
	"RGBA": pixel.FormatRGBA,
	"RGBx": pixel.FormatRGBX,
}

// GstFinder discovers NDI sources through the GStreamer device monitor.
type GstFinder struct{}

// NewGstFinder initializes GStreamer and returns a network source finder.
func NewGstFinder() (*GstFinder, error) {
	gst.Init(nil)
	// Verify the NDI plugin is installed before anything tries to connect.
	elem, err := gst.NewElement("ndisrc")
	if err != nil {
		return nil, fmt.Errorf("source: ndisrc element unavailable (install gst-plugin-ndi): %w", err)
	}
	elem.SetState(gst.StateNull)
	return &GstFinder{}, nil
}

// ListSources runs the device monitor for up to timeout and returns the
// display names of the NDI sources it found, in discovery order.
func (f *GstFinder) ListSources(timeout time.Duration) ([]string, error) {
	monitor := gst.NewDeviceMonitor()
	monitor.AddFilter("Source/Network", nil)
	if !monitor.Start() {
		return nil, fmt.Errorf("source: device monitor failed to start")
	}
	defer monitor.Stop()

	// The monitor populates asynchronously; give the mDNS advertisements
	// time to arrive.
	time.Sleep(timeout)

	var names []string
	for _, dev := range monitor.GetDevices() {
		name := dev.GetDisplayName()
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	slog.Debug("source: discovery pass complete", "count", len(names))
	return names, nil
}

// GstSource receives frames from one NDI source through a
// ndisrc → ndisrcdemux → queue → appsink pipeline. The appsink keeps only
// the latest buffer, so Capture always observes the freshest frame.
type GstSource struct {
	name     string
	pipeline *gst.Pipeline
	sink     *app.Sink

	frames  chan *RawFrame // 1-deep, drop-oldest
	pool    sync.Pool
	seq     atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool

	mu sync.Mutex // serializes Capture across streamed readers
}

// ConnectGst verifies that name is currently advertised and builds a playing
// receiver pipeline for it.
func ConnectGst(finder Finder, name string) (Source, error) {
	names, err := finder.ListSources(2 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, name)
	}

	s := &GstSource{
		name:   name,
		frames: make(chan *RawFrame, 1),
	}
	s.pool.New = func() any { return new(RawFrame) }

	if err := s.buildPipeline(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	if err := s.pipeline.SetState(gst.StatePlaying); err != nil {
		s.pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("%w: pipeline failed to start: %v", ErrConnectFailed, err)
	}

	slog.Info("source: connected", "name", name)
	return s, nil
}

func (s *GstSource) buildPipeline() error {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	ndisrc, err := gst.NewElement("ndisrc")
	if err != nil {
		return fmt.Errorf("failed to create ndisrc: %w", err)
	}
	ndisrc.SetProperty("ndi-name", s.name)
	ndisrc.SetProperty("timeout", uint(5000))
	ndisrc.SetProperty("connect-timeout", uint(10000))

	demux, err := gst.NewElement("ndisrcdemux")
	if err != nil {
		return fmt.Errorf("failed to create ndisrcdemux: %w", err)
	}

	queue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	// Keep only the freshest buffer; a monitor must never build latency.
	queue.SetProperty("max-size-buffers", uint(1))
	queue.SetProperty("leaky", 2) // downstream: drop oldest

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(ndisrc, demux, queue, appsink.Element)
	if err := gst.ElementLinkMany(ndisrc, demux); err != nil {
		return fmt.Errorf("failed to link ndisrc to demux: %w", err)
	}
	if err := gst.ElementLinkMany(queue, appsink.Element); err != nil {
		return fmt.Errorf("failed to link queue to appsink: %w", err)
	}

	// The demux exposes its video pad only after the stream negotiates.
	demux.Connect("pad-added", func(self *gst.Element, pad *gst.Pad) {
		if !strings.HasPrefix(pad.GetName(), "video") {
			return
		}
		sinkPad := queue.GetStaticPad("sink")
		if sinkPad == nil {
			slog.Error("source: queue has no sink pad")
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			slog.Error("source: failed to link demux video pad", "ret", ret)
			return
		}
		slog.Debug("source: video pad linked", "name", s.name)
	})

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	s.pipeline = pipeline
	s.sink = appsink
	return nil
}

// onNewSample copies the mapped buffer out of GStreamer ownership and
// publishes it on the 1-deep frame channel, displacing any unconsumed frame.
func (s *GstSource) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single bad sample must not kill the stream.
		slog.Warn("source: failed to pull sample, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("source: sample without buffer, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("source: empty buffer received")
		return gst.FlowOK
	}

	width, height, format, ok := parseVideoCaps(sample.GetCaps())
	if !ok || height == 0 {
		buffer.Unmap()
		slog.Warn("source: sample with unusable caps, skipping frame")
		return gst.FlowOK
	}

	// Copy out: GStreamer reuses the buffer after Unmap. Released frames go
	// back to the pool whole, so steady-state captures allocate nothing.
	frame := s.pool.Get().(*RawFrame)
	if cap(frame.buf) < len(data) {
		frame.buf = make([]byte, len(data))
	}
	frameData := frame.buf[:len(data)]
	copy(frameData, data)
	buffer.Unmap()

	*frame = RawFrame{
		Width:     width,
		Height:    height,
		Stride:    len(frameData) / height,
		Format:    format,
		Data:      frameData,
		Timestamp: time.Now(),
		Seq:       s.seq.Add(1),
		TraceID:   uuid.NewString(),
		buf:       frameData,
	}

	select {
	case s.frames <- frame:
	default:
		// Displace the stale frame so Capture always sees the newest one.
		select {
		case old := <-s.frames:
			old.Data = nil
			s.pool.Put(old)
			s.dropped.Add(1)
		default:
		}
		select {
		case s.frames <- frame:
		default:
			frame.Data = nil
			s.pool.Put(frame)
			s.dropped.Add(1)
		}
	}
	return gst.FlowOK
}

// parseVideoCaps pulls width, height and pixel format out of sample caps.
func parseVideoCaps(caps *gst.Caps) (width, height int, format pixel.Format, ok bool) {
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, 0, false
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return 0, 0, 0, false
	}
	wv, err := structure.GetValue("width")
	if err != nil {
		return 0, 0, 0, false
	}
	hv, err := structure.GetValue("height")
	if err != nil {
		return 0, 0, 0, false
	}
	fv, err := structure.GetValue("format")
	if err != nil {
		return 0, 0, 0, false
	}
	w, _ := wv.(int)
	h, _ := hv.(int)
	name, _ := fv.(string)
	f, known := gstFormats[name]
	if !known {
		// Unknown formats still flow through; the converter reports them
		// as unsupported with the original tag.
		f = pixel.Format(0)
	}
	return w, h, f, w > 0 && h > 0
}

func (s *GstSource) Name() string { return s.name }

// Capture waits for the next published frame. Concurrent callers are
// serialized so a frame is never handed to two readers at once.
func (s *GstSource) Capture(timeout time.Duration) (*RawFrame, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame, open := <-s.frames:
		if !open {
			return nil, false, ErrClosed
		}
		return frame, true, nil
	case <-timer.C:
		return nil, false, nil
	}
}

// Release recycles a captured frame and its buffer. Idempotent per frame.
func (s *GstSource) Release(f *RawFrame) {
	if f == nil || f.Data == nil {
		return
	}
	f.Data = nil
	s.pool.Put(f)
}

// Close stops the pipeline. Idempotent.
func (s *GstSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.pipeline != nil {
		if err := s.pipeline.SetState(gst.StateNull); err != nil {
			slog.Error("source: failed to stop pipeline", "name", s.name, "error", err)
		}
	}
	slog.Info("source: disconnected",
		"name", s.name,
		"frames_received", s.seq.Load(),
		"frames_dropped", s.dropped.Load(),
	)
	return nil
}
