// Package feed runs the receive path: frames from a bus adapter are decoded
// and their signals written into the signal cache.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/signalcache"
)

// DefaultPollTimeout is how long a single Recv waits before the loop
// rechecks its context.
const DefaultPollTimeout = 50 * time.Millisecond

// Stats counts frames seen by a Feeder.
type Stats struct {
	Received uint64
	Decoded  uint64
	Unknown  uint64
	Failed   uint64
}

// Feeder decodes received frames into a signal cache. Without a Codec
// every frame counts as unknown.
type Feeder struct {
	Adapter bus.Adapter
	Codec   codec.Codec
	Cache   *signalcache.Cache

	// Logger receives debug output for dropped frames. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// PollTimeout bounds each Recv call (default: 50ms).
	PollTimeout time.Duration

	received atomic.Uint64
	decoded  atomic.Uint64
	unknown  atomic.Uint64
	failed   atomic.Uint64
}

// Run receives until ctx is done or the adapter is closed. Decode failures
// are counted and never stop the loop. A closed adapter returns nil.
func (f *Feeder) Run(ctx context.Context) error {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := f.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fr, ok, err := f.Adapter.Recv(timeout)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}
		if !ok {
			continue
		}
		f.received.Add(1)
		if f.Codec == nil {
			f.unknown.Add(1)
			continue
		}

		fields, err := codec.DecodeTolerant(f.Codec, fr.ID, fr.Data)
		if err != nil {
			if errors.Is(err, codec.ErrUnknownMessage) {
				f.unknown.Add(1)
			} else {
				f.failed.Add(1)
				logger.Debug("decode failed", "frame", fr.String(), "error", err)
			}
			continue
		}

		ts := fr.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		for name, value := range fields {
			f.Cache.Update(fr.ID, name, value, ts)
		}
		f.decoded.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (f *Feeder) Stats() Stats {
	return Stats{
		Received: f.received.Load(),
		Decoded:  f.decoded.Load(),
		Unknown:  f.unknown.Load(),
		Failed:   f.failed.Load(),
	}
}
