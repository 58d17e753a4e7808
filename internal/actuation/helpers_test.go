package actuation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/feed"
	"github.com/eol-bench/eol-go/pkg/frame"
	"github.com/eol-bench/eol-go/pkg/signalcache"
)

const relaySchema = `
name: relay-board
messages:
  - id: 0x200
    name: RelayCommand
    length: 8
    selector: CmdType
    signals:
      - {name: CmdType, start_bit: 0, length: 8, choices: {1: VOLTAGE_CMD, 2: RELAY_CMD}}
      - {name: Voltage_mV, start_bit: 8, length: 16, mux: 1}
      - {name: MuxEnable, start_bit: 24, length: 1, mux: 1}
      - {name: MuxChannel, start_bit: 25, length: 4, mux: 1}
      - {name: RelayK1, start_bit: 8, length: 1, mux: 2}
  - id: 0x300
    name: RelayStatus
    length: 4
    signals:
      - {name: K1State, start_bit: 0, length: 1}
`

var errInjected = errors.New("injected fault")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSchema(t *testing.T) *codec.Schema {
	t.Helper()
	s, err := codec.ParseSchema([]byte(relaySchema))
	require.NoError(t, err)
	return s
}

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, ev := range r.events {
		if ev.Frame == nil {
			out = append(out, ev.State)
		}
	}
	return out
}

func (r *recorder) count(s State) int {
	n := 0
	for _, st := range r.states() {
		if st == s {
			n++
		}
	}
	return n
}

// sent returns frame events that set signal, in order.
func (r *recorder) sent(signal string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Frame == nil {
			continue
		}
		if _, ok := ev.Fields[signal]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// faultAdapter fails the Nth send attempt and records every attempt.
type faultAdapter struct {
	*bus.Loopback
	failAt int

	mu       sync.Mutex
	attempts []frame.Frame
}

func (a *faultAdapter) Send(ctx context.Context, f frame.Frame) error {
	a.mu.Lock()
	a.attempts = append(a.attempts, f)
	n := len(a.attempts)
	a.mu.Unlock()
	if n == a.failAt {
		return errInjected
	}
	return a.Loopback.Send(ctx, f)
}

func (a *faultAdapter) Attempts() []frame.Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]frame.Frame(nil), a.attempts...)
}

// bench wires an engine to a simulated relay board.
type bench struct {
	schema *codec.Schema
	bus    *bus.Loopback
	cache  *signalcache.Cache
	rec    *recorder
	engine *Engine
}

func newBench(t *testing.T, opts ...Option) *bench {
	t.Helper()
	b := &bench{
		schema: testSchema(t),
		bus:    bus.NewLoopback(bus.LoopbackConfig{}),
		cache:  signalcache.New(),
		rec:    &recorder{},
	}
	require.NoError(t, b.bus.Open(context.Background()))
	t.Cleanup(func() { _ = b.bus.Close() })

	base := []Option{
		WithPollInterval(5 * time.Millisecond),
		WithSettle(10 * time.Millisecond),
		WithCleanupSettle(time.Millisecond),
		WithLogger(discardLogger()),
		WithObserver(b.rec.observe),
	}
	b.engine = New(b.bus, b.schema, b.cache, append(base, opts...)...)
	return b
}

// startFeeder runs the receive path into the bench cache.
func (b *bench) startFeeder(t *testing.T) {
	t.Helper()
	f := &feed.Feeder{
		Adapter:     b.bus,
		Codec:       b.schema,
		Cache:       b.cache,
		Logger:      discardLogger(),
		PollTimeout: 2 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// status builds a RelayStatus frame.
func (b *bench) status(t *testing.T, k1 int) frame.Frame {
	t.Helper()
	data, err := b.schema.Encode(0x300, map[string]any{"K1State": k1})
	require.NoError(t, err)
	return frame.Frame{ID: 0x300, Data: data}
}

// mirrorRelay makes the simulated board report RelayK1 back as K1State.
func (b *bench) mirrorRelay(t *testing.T) {
	t.Helper()
	b.bus.OnSend(func(sent frame.Frame) []frame.Frame {
		if sent.ID != 0x200 {
			return nil
		}
		fields, err := b.schema.Decode(0x200, sent.Data)
		if err != nil {
			return nil
		}
		k1, ok := fields["RelayK1"]
		if !ok {
			return nil
		}
		return []frame.Frame{b.status(t, int(k1.(int64)))}
	})
}

func relayDescriptor(dwellMS int) *Descriptor {
	return &Descriptor{
		Name:           "relay-k1",
		Kind:           Digital,
		FeedbackSignal: "K1State",
		Digital: &DigitalSpec{
			MessageID: 0x200,
			Signal:    "RelayK1",
			ValueLow:  "0",
			ValueHigh: "1",
			DwellMS:   dwellMS,
		},
	}
}

func rampDescriptor() *Descriptor {
	return &Descriptor{
		Name: "ramp-ch3",
		Kind: Analog,
		Analog: &AnalogSpec{
			MessageID:        0x200,
			CommandSignal:    "Voltage_mV",
			MuxEnableSignal:  "MuxEnable",
			MuxChannelSignal: "MuxChannel",
			MuxChannelValue:  3,
			MinMV:            0,
			MaxMV:            250,
			StepMV:           100,
			DwellMS:          10,
		},
	}
}
