package bus

import (
	"context"
	"sync"
	"time"

	"github.com/eol-bench/eol-go/pkg/caplog"
	"github.com/eol-bench/eol-go/pkg/frame"
)

// Responder simulates a device: it is called for every sent frame and
// returns the frames the device would answer with.
type Responder func(sent frame.Frame) []frame.Frame

// LoopbackConfig configures a Loopback adapter.
type LoopbackConfig struct {
	// Echo loops every sent frame back into the receive queue.
	Echo bool

	// QueueSize is the receive buffer (default: 256). When full, new
	// frames are dropped.
	QueueSize int

	// Capture receives frame events. Optional.
	Capture caplog.Logger

	// RunID tags capture events.
	RunID string
}

// Loopback is an in-memory adapter for tests and simulation.
type Loopback struct {
	config LoopbackConfig
	rx     chan frame.Frame

	mu         sync.Mutex
	open       bool
	closed     bool
	closeCh    chan struct{}
	sent       []frame.Frame
	sendErr    error
	responders []Responder
	dropped    int
}

// NewLoopback creates a closed loopback adapter.
func NewLoopback(config LoopbackConfig) *Loopback {
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	return &Loopback{
		config:  config,
		rx:      make(chan frame.Frame, config.QueueSize),
		closeCh: make(chan struct{}),
	}
}

// Open marks the adapter open.
func (l *Loopback) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.open = true
	return nil
}

// Close marks the adapter closed and wakes pending receivers.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.open = false
	l.closed = true
	close(l.closeCh)
	return nil
}

// IsOpen reports whether the adapter is open.
func (l *Loopback) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// OnSend registers a simulated device responder.
func (l *Loopback) OnSend(r Responder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responders = append(l.responders, r)
}

// FailSends makes every following Send return err. Pass nil to recover.
func (l *Loopback) FailSends(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// Send records the frame, then echoes it and runs responders.
func (l *Loopback) Send(ctx context.Context, f frame.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return ErrNotOpen
	}
	if l.sendErr != nil {
		err := l.sendErr
		l.mu.Unlock()
		return err
	}
	f.Data = append([]byte(nil), f.Data...)
	l.sent = append(l.sent, f)
	responders := append([]Responder(nil), l.responders...)
	l.mu.Unlock()

	logFrame(l.config.Capture, l.config.RunID, caplog.DirectionOut, f)

	if l.config.Echo {
		_ = l.Loopback(f)
	}
	for _, r := range responders {
		for _, reply := range r(f) {
			l.Inject(reply)
		}
	}
	return nil
}

// Loopback feeds f into the receive queue as if it arrived from the bus.
func (l *Loopback) Loopback(f frame.Frame) error {
	if !l.IsOpen() {
		return ErrNotOpen
	}
	l.Inject(f)
	return nil
}

// Inject queues a frame for Recv, stamping it with the current time if it
// has no timestamp. Returns false if the queue is full.
func (l *Loopback) Inject(f frame.Frame) bool {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	select {
	case l.rx <- f:
		return true
	default:
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
		return false
	}
}

// Recv waits up to timeout for a queued frame.
func (l *Loopback) Recv(timeout time.Duration) (frame.Frame, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-l.rx:
		logFrame(l.config.Capture, l.config.RunID, caplog.DirectionIn, f)
		return f, true, nil
	case <-l.closeCh:
		return frame.Frame{}, false, ErrClosed
	case <-timer.C:
		return frame.Frame{}, false, nil
	}
}

// Sent returns a copy of every frame sent so far.
func (l *Loopback) Sent() []frame.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]frame.Frame(nil), l.sent...)
}

// Reset clears the sent history.
func (l *Loopback) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = nil
}

// Dropped returns the number of frames dropped on a full receive queue.
func (l *Loopback) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
