package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/eol-bench/eol-go/pkg/caplog"
	"github.com/eol-bench/eol-go/pkg/frame"
)

// GatewayConfig configures a CAN-over-Ethernet gateway client.
type GatewayConfig struct {
	// Address is the gateway host:port.
	Address string

	// ConnectTimeout bounds each dial attempt (default: 5s).
	ConnectTimeout time.Duration

	// DialAttempts is the number of dial attempts (default: 3).
	DialAttempts int

	// WriteTimeout bounds a single frame write (default: 1s).
	WriteTimeout time.Duration

	// QueueSize is the receive buffer (default: 1024). When full, new
	// frames are dropped.
	QueueSize int

	// Capture receives frame events. Optional.
	Capture caplog.Logger

	// Logger receives operational logs (default: slog.Default()).
	Logger *slog.Logger

	// RunID tags capture events.
	RunID string
}

// Gateway talks to a transparent CAN-over-TCP gateway.
type Gateway struct {
	config GatewayConfig
	dial   func(ctx context.Context, address string) (net.Conn, error)

	mu      sync.Mutex
	conn    net.Conn
	rx      chan frame.Frame
	closeCh chan struct{}
	readErr error
	dropped int

	closeOnce sync.Once
	writeMu   sync.Mutex
}

// NewGateway creates a gateway adapter. Call Open to connect.
func NewGateway(config GatewayConfig) *Gateway {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 5 * time.Second
	}
	if config.DialAttempts <= 0 {
		config.DialAttempts = 3
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	g := &Gateway{
		config:  config,
		rx:      make(chan frame.Frame, config.QueueSize),
		closeCh: make(chan struct{}),
	}
	g.dial = g.dialTCP
	return g
}

func (g *Gateway) dialTCP(ctx context.Context, address string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.ConnectTimeout)
	defer cancel()
	dialer := &net.Dialer{}
	return dialer.DialContext(ctx, "tcp", address)
}

// Open dials the gateway with retry and starts the read loop.
func (g *Gateway) Open(ctx context.Context) error {
	g.mu.Lock()
	if g.conn != nil {
		g.mu.Unlock()
		return nil
	}
	select {
	case <-g.closeCh:
		g.mu.Unlock()
		return ErrClosed
	default:
	}
	g.mu.Unlock()

	var conn net.Conn
	err := dialRetry(ctx, Backoff{
		Attempts: g.config.DialAttempts,
		Initial:  100 * time.Millisecond,
		Max:      time.Second,
	}, func() error {
		var dialErr error
		conn, dialErr = g.dial(ctx, g.config.Address)
		return dialErr
	})
	if err != nil {
		return fmt.Errorf("dial gateway %s: %w", g.config.Address, err)
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	go g.readLoop(conn)
	return nil
}

// readLoop decodes fixed-size frames until the connection fails.
func (g *Gateway) readLoop(conn net.Conn) {
	buf := make([]byte, WireFrameSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			g.mu.Lock()
			if g.readErr == nil {
				g.readErr = err
			}
			g.mu.Unlock()
			g.Close()
			return
		}
		f, err := DecodeWire(buf)
		if err != nil {
			g.config.Logger.Debug("dropping malformed frame", "address", g.config.Address, "error", err)
			continue
		}
		f.Timestamp = time.Now()

		select {
		case g.rx <- f:
		default:
			g.mu.Lock()
			g.dropped++
			g.mu.Unlock()
		}
	}
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.closeCh)
		g.mu.Lock()
		conn := g.conn
		g.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// IsOpen reports whether the gateway connection is up.
func (g *Gateway) IsOpen() bool {
	select {
	case <-g.closeCh:
		return false
	default:
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// Send writes one frame to the gateway.
func (g *Gateway) Send(ctx context.Context, f frame.Frame) error {
	raw, err := EncodeWire(f)
	if err != nil {
		return err
	}
	if !g.IsOpen() {
		return ErrNotOpen
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()

	deadline := time.Now().Add(g.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	if _, err := conn.Write(raw); err != nil {
		return fmt.Errorf("gateway write: %w", err)
	}

	logFrame(g.config.Capture, g.config.RunID, caplog.DirectionOut, f)
	return nil
}

// Recv waits up to timeout for a received frame. Once the connection is
// closed, buffered frames are still drained before ErrClosed is returned.
func (g *Gateway) Recv(timeout time.Duration) (frame.Frame, bool, error) {
	select {
	case f := <-g.rx:
		logFrame(g.config.Capture, g.config.RunID, caplog.DirectionIn, f)
		return f, true, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-g.rx:
		logFrame(g.config.Capture, g.config.RunID, caplog.DirectionIn, f)
		return f, true, nil
	case <-g.closeCh:
		return frame.Frame{}, false, g.closedErr()
	case <-timer.C:
		return frame.Frame{}, false, nil
	}
}

func (g *Gateway) closedErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil && !errors.Is(g.readErr, io.EOF) && !errors.Is(g.readErr, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrClosed, g.readErr)
	}
	return ErrClosed
}

// Dropped returns the number of frames dropped on a full receive queue.
func (g *Gateway) Dropped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}
