package station

import (
	"context"
	"errors"
	"fmt"

	"github.com/eol-bench/eol-go/internal/actuation"
	"github.com/eol-bench/eol-go/internal/profile"
	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/feed"
	"github.com/eol-bench/eol-go/pkg/frame"
	"github.com/eol-bench/eol-go/pkg/signalcache"
)

// Session is an open bus with the receive path running, for interactive use.
type Session struct {
	Profile *profile.Profile
	Schema  *codec.Schema
	Adapter bus.Adapter
	Cache   *signalcache.Cache
	Engine  *actuation.Engine

	feeder *feed.Feeder
	stop   context.CancelFunc
	done   chan error
}

// OpenSession loads the configured profile, opens the bus and starts the
// receive path. Only ProfilePath is honored.
func (r *Runner) OpenSession(ctx context.Context) (*Session, error) {
	if r.config.ProfilePath == "" {
		return nil, errors.New("a profile file is required")
	}
	p, err := profile.Load(r.config.ProfilePath)
	if err != nil {
		return nil, err
	}
	schema, err := r.loadSchema(p)
	if err != nil {
		return nil, err
	}

	adapter, err := r.newAdapter(ctx)
	if err != nil {
		return nil, err
	}
	if r.sim != nil {
		r.simDevice = simulateDevice(schema, p.Tests)
	}

	s := &Session{
		Profile: p,
		Schema:  schema,
		Adapter: adapter,
		Cache:   signalcache.New(),
		done:    make(chan error, 1),
	}
	var c codec.Codec
	if schema != nil {
		c = schema
	}
	s.feeder = &feed.Feeder{Adapter: adapter, Codec: c, Cache: s.Cache, Logger: r.logger}

	opts := []actuation.Option{actuation.WithLogger(r.logger)}
	if r.config.Capture != nil {
		opts = append(opts, actuation.WithCapture(r.config.Capture, r.runID))
	}
	s.Engine = actuation.New(adapter, c, s.Cache, opts...)

	feedCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	s.stop = stop
	go func() {
		s.done <- s.feeder.Run(feedCtx)
	}()
	return s, nil
}

// Test returns the profile test with the given name.
func (s *Session) Test(name string) (*actuation.Descriptor, bool) {
	for _, d := range s.Profile.Tests {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Send encodes fields for message id with the schema and transmits the frame.
func (s *Session) Send(ctx context.Context, id uint32, fields map[string]any) (frame.Frame, error) {
	if s.Schema == nil {
		return frame.Frame{}, errors.New("profile has no schema")
	}
	data, err := s.Schema.Encode(id, fields)
	if err != nil {
		return frame.Frame{}, err
	}
	return s.SendRaw(ctx, id, data)
}

// SendRaw transmits data as-is.
func (s *Session) SendRaw(ctx context.Context, id uint32, data []byte) (frame.Frame, error) {
	f, err := frame.New(id, data)
	if err != nil {
		return frame.Frame{}, err
	}
	if err := s.Adapter.Send(ctx, f); err != nil {
		return frame.Frame{}, err
	}
	return f, nil
}

// Stats returns the receive path counters.
func (s *Session) Stats() feed.Stats {
	return s.feeder.Stats()
}

// Close stops the receive path and closes the bus.
func (s *Session) Close() error {
	s.stop()
	err := <-s.done
	if cerr := s.Adapter.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
