// Package source defines the frame-acquisition capability the pipeline is
// built on, with one production implementation bound to the NDI GStreamer
// plugin and one deterministic synthetic implementation for running without
// hardware or a network.
package source

import (
	"errors"
	"time"

	"github.com/smithevan-qanc/ndi-monitor/internal/pixel"
)

var (
	// ErrSourceNotFound means the requested source name is not currently
	// advertised on the network.
	ErrSourceNotFound = errors.New("source: not found")
	// ErrConnectFailed means the source exists but a receiver could not be
	// established for it.
	ErrConnectFailed = errors.New("source: connect failed")
	// ErrClosed is returned by Capture after Close.
	ErrClosed = errors.New("source: closed")
)

// RawFrame is a frame as delivered by a source. The Data buffer is borrowed:
// it belongs to the source until the caller hands it back with Release, and
// any pixels needed afterwards must be copied out first.
type RawFrame struct {
	Width     int
	Height    int
	Stride    int // bytes per row, may exceed Width*bpp due to padding
	Format    pixel.Format
	Data      []byte
	Timestamp time.Time
	Seq       uint64
	TraceID   string

	buf []byte // backing allocation, retained while the frame sits in a pool
}

// Source is a connected receiver for one named video source.
//
// Implementations must guarantee:
//   - Capture is safe for concurrent callers (serialized internally when the
//     underlying receiver is not reentrant)
//   - Capture never blocks longer than the given timeout
//   - Close is idempotent
type Source interface {
	// Name returns the source name this receiver was connected to.
	Name() string

	// Capture waits up to timeout for the next frame. The second return is
	// false when no frame arrived in time; that is a normal outcome, not an
	// error. A returned frame must be handed back via Release before the
	// next Capture by the same caller.
	Capture(timeout time.Duration) (*RawFrame, bool, error)

	// Release returns a captured frame's buffer to the source.
	Release(*RawFrame)

	// Close tears down the receiver. Safe to call multiple times.
	Close() error
}

// Finder enumerates the source names currently visible on the network.
type Finder interface {
	ListSources(timeout time.Duration) ([]string, error)
}

// Connector establishes a receiver for a named source. Failures are
// ErrSourceNotFound or ErrConnectFailed (possibly wrapped).
type Connector func(name string) (Source, error)
