package bus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eol-bench/eol-go/pkg/frame"
)

func TestLoopbackRequiresOpen(t *testing.T) {
	l := NewLoopback(LoopbackConfig{})
	err := l.Send(context.Background(), frame.Frame{ID: 1})
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, l.Loopback(frame.Frame{ID: 1}), ErrNotOpen)
}

func TestLoopbackEcho(t *testing.T) {
	l := NewLoopback(LoopbackConfig{Echo: true})
	require.NoError(t, l.Open(context.Background()))
	defer l.Close()

	require.NoError(t, l.Send(context.Background(), frame.Frame{ID: 0x123, Data: []byte{1, 2}}))

	f, ok, err := l.Recv(100 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0x123), f.ID)
	assert.False(t, f.Timestamp.IsZero(), "received frames are timestamped")
	assert.Len(t, l.Sent(), 1)
}

func TestLoopbackRecvTimeout(t *testing.T) {
	l := NewLoopback(LoopbackConfig{})
	require.NoError(t, l.Open(context.Background()))

	start := time.Now()
	_, ok, err := l.Recv(30 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestLoopbackResponder(t *testing.T) {
	l := NewLoopback(LoopbackConfig{})
	require.NoError(t, l.Open(context.Background()))

	l.OnSend(func(sent frame.Frame) []frame.Frame {
		if sent.ID != 0x200 {
			return nil
		}
		return []frame.Frame{{ID: 0x300, Data: sent.Data}}
	})

	require.NoError(t, l.Send(context.Background(), frame.Frame{ID: 0x200, Data: []byte{7}}))

	f, ok, err := l.Recv(100 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0x300), f.ID)
	assert.Equal(t, []byte{7}, f.Data)
}

func TestLoopbackFailSends(t *testing.T) {
	l := NewLoopback(LoopbackConfig{})
	require.NoError(t, l.Open(context.Background()))

	boom := errors.New("bus off")
	l.FailSends(boom)
	assert.ErrorIs(t, l.Send(context.Background(), frame.Frame{ID: 1}), boom)
	assert.Empty(t, l.Sent())

	l.FailSends(nil)
	assert.NoError(t, l.Send(context.Background(), frame.Frame{ID: 1}))
}

func TestLoopbackRejectsOversizedPayload(t *testing.T) {
	l := NewLoopback(LoopbackConfig{})
	require.NoError(t, l.Open(context.Background()))
	err := l.Send(context.Background(), frame.Frame{ID: 1, Data: make([]byte, 9)})
	assert.ErrorIs(t, err, frame.ErrInvalidLen)
}

func TestLoopbackCloseWakesRecv(t *testing.T) {
	l := NewLoopback(LoopbackConfig{})
	require.NoError(t, l.Open(context.Background()))

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Close()
	}()

	_, ok, err := l.Recv(time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, l.IsOpen())
	assert.ErrorIs(t, l.Open(context.Background()), ErrClosed)
}

func TestLoopbackDropsWhenFull(t *testing.T) {
	l := NewLoopback(LoopbackConfig{QueueSize: 1})
	assert.True(t, l.Inject(frame.Frame{ID: 1}))
	assert.False(t, l.Inject(frame.Frame{ID: 2}))
	assert.Equal(t, 1, l.Dropped())
}

func TestWireRoundTrip(t *testing.T) {
	f := frame.Frame{ID: 0x18FF50E5, Extended: true, Data: []byte{0xAA, 0xBB, 0xCC}}

	raw, err := EncodeWire(f)
	require.NoError(t, err)
	require.Len(t, raw, WireFrameSize)
	assert.Equal(t, byte(0x80|0x20|3), raw[0])

	got, err := DecodeWire(raw)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.True(t, got.Extended)
	assert.Equal(t, f.Data, got.Data)
}

func TestDecodeWireRejects(t *testing.T) {
	_, err := DecodeWire(make([]byte, 5))
	assert.Error(t, err)

	_, err = DecodeWire(make([]byte, WireFrameSize))
	assert.Error(t, err, "header without valid bit")

	raw := make([]byte, WireFrameSize)
	raw[0] = 0x80 | 0x0F
	_, err = DecodeWire(raw)
	assert.ErrorIs(t, err, frame.ErrInvalidLen)
}

func pipeGateway(t *testing.T) (*Gateway, net.Conn) {
	t.Helper()
	return pipeGatewayWith(t, GatewayConfig{Address: "pipe"})
}

func pipeGatewayWith(t *testing.T, config GatewayConfig) (*Gateway, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	g := NewGateway(config)
	g.dial = func(ctx context.Context, address string) (net.Conn, error) {
		return client, nil
	}
	require.NoError(t, g.Open(context.Background()))
	t.Cleanup(func() {
		g.Close()
		server.Close()
	})
	return g, server
}

func TestGatewaySendAndRecv(t *testing.T) {
	g, server := pipeGateway(t)
	require.True(t, g.IsOpen())

	// Device -> station.
	raw, err := EncodeWire(frame.Frame{ID: 0x300, Data: []byte{1}})
	require.NoError(t, err)
	go server.Write(raw)

	f, ok, err := g.Recv(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0x300), f.ID)

	// Station -> device.
	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, WireFrameSize)
		if _, err := io.ReadFull(server, buf); err == nil {
			got <- buf
		}
	}()
	require.NoError(t, g.Send(context.Background(), frame.Frame{ID: 0x200, Data: []byte{9}}))

	select {
	case buf := <-got:
		sent, err := DecodeWire(buf)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x200), sent.ID)
	case <-time.After(time.Second):
		t.Fatal("gateway did not write frame")
	}
}

func TestGatewayLogsMalformedFrames(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g, server := pipeGatewayWith(t, GatewayConfig{Address: "pipe", Logger: logger})

	bad := make([]byte, WireFrameSize)
	bad[0] = 0x80 | 0x0F
	good, err := EncodeWire(frame.Frame{ID: 0x300, Data: []byte{1}})
	require.NoError(t, err)
	go server.Write(append(bad, good...))

	f, ok, err := g.Recv(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0x300), f.ID, "malformed frame skipped")
	assert.Contains(t, logs.String(), "dropping malformed frame")
	assert.Contains(t, logs.String(), "address=pipe")
}

func TestGatewayPeerClose(t *testing.T) {
	g, server := pipeGateway(t)

	server.Close()

	_, ok, err := g.Recv(time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, g.IsOpen())
	assert.ErrorIs(t, g.Send(context.Background(), frame.Frame{ID: 1}), ErrNotOpen)
}

func TestGatewayDialRetry(t *testing.T) {
	g := NewGateway(GatewayConfig{Address: "nowhere", DialAttempts: 3})
	attempts := 0
	g.dial = func(ctx context.Context, address string) (net.Conn, error) {
		attempts++
		return nil, errors.New("refused")
	}

	err := g.Open(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.False(t, g.IsOpen())
}

func TestDialRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dialRetry(ctx, Backoff{Attempts: 3, Initial: time.Second}, func() error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialRetryNoAttempts(t *testing.T) {
	assert.ErrorIs(t, dialRetry(context.Background(), Backoff{}, func() error { return nil }), errNoAttempts)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.delay(0))
	assert.Equal(t, 400*time.Millisecond, b.delay(2))
	assert.Equal(t, time.Second, b.delay(5))
	assert.Equal(t, 10*time.Second, Backoff{Initial: time.Second}.delay(8))
}
