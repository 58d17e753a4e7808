// Package bus provides frame bus adapters: the transport between the
// station and the device under test.
package bus

import (
	"context"
	"errors"
	"time"

	"github.com/eol-bench/eol-go/pkg/caplog"
	"github.com/eol-bench/eol-go/pkg/frame"
)

// Adapter errors.
var (
	// ErrNotOpen indicates the adapter has not been opened.
	ErrNotOpen = errors.New("bus adapter not open")

	// ErrClosed indicates the adapter was closed.
	ErrClosed = errors.New("bus adapter closed")
)

// Adapter sends and receives frames on a bus.
// Implemented by Loopback and Gateway.
type Adapter interface {
	// Open connects the transport.
	Open(ctx context.Context) error

	// Close disconnects the transport. Safe to call more than once.
	Close() error

	// IsOpen reports whether the adapter can send.
	IsOpen() bool

	// Send transmits one frame.
	Send(ctx context.Context, f frame.Frame) error

	// Recv waits up to timeout for a frame. ok is false on timeout.
	Recv(timeout time.Duration) (f frame.Frame, ok bool, err error)
}

// Looper is implemented by adapters that can feed a sent frame back into
// their own receive path without hardware.
type Looper interface {
	Loopback(f frame.Frame) error
}

// Compile-time interface satisfaction checks.
var (
	_ Adapter = (*Loopback)(nil)
	_ Looper  = (*Loopback)(nil)
	_ Adapter = (*Gateway)(nil)
)

// logFrame records a frame on the capture logger.
func logFrame(logger caplog.Logger, runID string, dir caplog.Direction, f frame.Frame) {
	if logger == nil {
		return
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	logger.Log(caplog.Event{
		Timestamp: ts,
		RunID:     runID,
		Direction: dir,
		Category:  caplog.CategoryFrame,
		Frame:     caplog.NewFrameEvent(f),
	})
}
