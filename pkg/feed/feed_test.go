package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/frame"
	"github.com/eol-bench/eol-go/pkg/signalcache"
)

const statusSchema = `
messages:
  - id: 0x300
    name: RelayStatus
    length: 4
    signals:
      - {name: K1State, start_bit: 0, length: 1}
      - {name: Temperature, start_bit: 8, length: 8, signed: true, factor: 0.5, offset: -10}
`

func newFeeder(t *testing.T) (*Feeder, *bus.Loopback) {
	t.Helper()
	schema, err := codec.ParseSchema([]byte(statusSchema))
	require.NoError(t, err)

	lb := bus.NewLoopback(bus.LoopbackConfig{})
	require.NoError(t, lb.Open(context.Background()))
	t.Cleanup(func() { _ = lb.Close() })

	return &Feeder{
		Adapter:     lb,
		Codec:       schema,
		Cache:       signalcache.New(),
		PollTimeout: 5 * time.Millisecond,
	}, lb
}

func runFeeder(t *testing.T, f *Feeder) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("feeder did not stop")
		}
	}
}

func TestFeederUpdatesCache(t *testing.T) {
	f, lb := newFeeder(t)
	stop := runFeeder(t, f)
	defer stop()

	lb.Inject(frame.Frame{ID: 0x300, Data: []byte{0x01, 0x1E, 0, 0}})

	require.Eventually(t, func() bool {
		_, ok := f.Cache.GetLatest(0x300, "K1State")
		return ok
	}, time.Second, 5*time.Millisecond)

	e, _ := f.Cache.GetLatest(0x300, "K1State")
	assert.Equal(t, int64(1), e.Value)
	e, _ = f.Cache.GetLatest(0x300, "Temperature")
	assert.InDelta(t, 5.0, e.Value, 1e-9)
}

func TestFeederPadsShortPayload(t *testing.T) {
	f, lb := newFeeder(t)
	stop := runFeeder(t, f)
	defer stop()

	lb.Inject(frame.Frame{ID: 0x300, Data: []byte{0x01}})

	require.Eventually(t, func() bool {
		e, ok := f.Cache.GetLatest(0x300, "K1State")
		return ok && e.Value == int64(1)
	}, time.Second, 5*time.Millisecond)
}

func TestFeederCountsUnknown(t *testing.T) {
	f, lb := newFeeder(t)
	stop := runFeeder(t, f)
	defer stop()

	lb.Inject(frame.Frame{ID: 0x7AB, Data: []byte{1}})
	lb.Inject(frame.Frame{ID: 0x300, Data: []byte{0, 0, 0, 0}})

	require.Eventually(t, func() bool {
		return f.Stats().Decoded == 1
	}, time.Second, 5*time.Millisecond)

	stats := f.Stats()
	assert.Equal(t, uint64(2), stats.Received)
	assert.Equal(t, uint64(1), stats.Unknown)
	assert.Zero(t, stats.Failed)
}

func TestFeederStopsOnClose(t *testing.T) {
	f, lb := newFeeder(t)

	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	require.NoError(t, lb.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feeder did not stop after close")
	}
}
