package actuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/caplog"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/frame"
	"github.com/eol-bench/eol-go/pkg/signalcache"
)

// Config holds engine timing and collaborators.
type Config struct {
	// PollInterval is the feedback poll period (default: 20ms).
	PollInterval time.Duration

	// Settle is the pause after re-asserting low (default: 50ms).
	Settle time.Duration

	// CleanupSettle is the pause after each cleanup frame (default: 50ms).
	CleanupSettle time.Duration

	// CleanupTimeout bounds cleanup sends, which run even after the run
	// context is cancelled (default: 1s).
	CleanupTimeout time.Duration

	Resolver SelectorResolver
	Logger   *slog.Logger
	Observer Observer

	// Capture records state changes and failures. Frames are captured by
	// the adapter.
	Capture caplog.Logger
	RunID   string
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:   20 * time.Millisecond,
		Settle:         50 * time.Millisecond,
		CleanupSettle:  50 * time.Millisecond,
		CleanupTimeout: time.Second,
		Resolver:       DefaultSelector(),
		Logger:         slog.Default(),
	}
}

// Option configures an Engine.
type Option func(*Config)

// WithPollInterval sets the feedback poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithSettle sets the pause after re-asserting low.
func WithSettle(d time.Duration) Option {
	return func(c *Config) { c.Settle = d }
}

// WithCleanupSettle sets the pause after each cleanup frame.
func WithCleanupSettle(d time.Duration) Option {
	return func(c *Config) { c.CleanupSettle = d }
}

// WithSelectorResolver replaces the selector resolver.
func WithSelectorResolver(r SelectorResolver) Option {
	return func(c *Config) { c.Resolver = r }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithObserver sets the progress callback.
func WithObserver(o Observer) Option {
	return func(c *Config) { c.Observer = o }
}

// WithCapture records state changes on a capture log tagged with runID.
func WithCapture(l caplog.Logger, runID string) Option {
	return func(c *Config) {
		c.Capture = l
		c.RunID = runID
	}
}

// Engine runs actuation tests against one bus adapter.
type Engine struct {
	adapter bus.Adapter
	codec   codec.Codec
	cache   *signalcache.Cache
	config  Config

	// guard serializes runs on the adapter.
	guard sync.Mutex
}

// New creates an engine. The codec may be nil, in which case every value
// is sent with the raw fallback encoding.
func New(adapter bus.Adapter, c codec.Codec, cache *signalcache.Cache, opts ...Option) *Engine {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Resolver == nil {
		config.Resolver = DefaultSelector()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Engine{
		adapter: adapter,
		codec:   c,
		cache:   cache,
		config:  config,
	}
}

// Run executes one test. The only errors returned are ErrAdapterNotOpen
// and ErrBusy, both before any frame is sent. Every other failure is
// reported in the Result.
func (e *Engine) Run(ctx context.Context, d *Descriptor) (Result, error) {
	if !e.adapter.IsOpen() {
		return Result{}, ErrAdapterNotOpen
	}
	if !e.guard.TryLock() {
		return Result{}, ErrBusy
	}
	defer e.guard.Unlock()

	if d == nil {
		return failure(configError("run", "nil descriptor")), nil
	}

	var res Result
	switch d.Kind {
	case Digital:
		if d.Digital == nil {
			return failure(configError("run", "test %q: digital actuation missing", d.Name)), nil
		}
		res = e.runDigital(ctx, d)
	case Analog:
		if d.Analog == nil {
			return failure(configError("run", "test %q: analog actuation missing", d.Name)), nil
		}
		res = e.runAnalog(ctx, d)
	default:
		return failure(configError("run", "test %q: unknown kind %q", d.Name, d.Kind)), nil
	}

	if res.Err != nil {
		e.captureError(d.Name, res.Err)
	}
	e.config.Logger.Info("test finished", "test", d.Name, "passed", res.Passed, "detail", res.Detail)
	return res, nil
}

func failure(err *Error) Result {
	return Result{Detail: err.Error(), Err: err}
}

// sendFailure renders a failed send as a result.
func sendFailure(err error) Result {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindTransport {
		return Result{Detail: fmt.Sprintf("Transport error: %v", ae.Err), Err: err}
	}
	return Result{Detail: err.Error(), Err: err}
}

// send encodes fields for message id and transmits the frame.
func (e *Engine) send(ctx context.Context, test, op string, id uint32, fields map[string]any, hint string) error {
	data := e.payload(id, fields, hint)
	f, err := frame.New(id, data)
	if err != nil {
		return &Error{Kind: KindConfig, Op: op, Err: err}
	}
	if err := e.adapter.Send(ctx, f); err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	e.notify(Event{Time: time.Now(), Test: test, Frame: &f, Fields: fields})
	return nil
}

// cleanupContext returns a context for cleanup sends that survives
// cancellation of the run context.
func (e *Engine) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.config.CleanupTimeout)
}

// enter records a state transition.
func (e *Engine) enter(test string, from, to State) {
	e.config.Logger.Debug("state", "test", test, "from", from, "to", to)
	e.notify(Event{Time: time.Now(), Test: test, State: to})
	if e.config.Capture != nil {
		e.config.Capture.Log(caplog.Event{
			Timestamp: time.Now(),
			RunID:     e.config.RunID,
			Category:  caplog.CategoryState,
			Test:      test,
			StateChange: &caplog.StateChangeEvent{
				OldState: from.String(),
				NewState: to.String(),
			},
		})
	}
}

func (e *Engine) captureError(test string, err error) {
	if e.config.Capture == nil {
		return
	}
	data := &caplog.ErrorEventData{Message: err.Error()}
	var ae *Error
	if errors.As(err, &ae) {
		data.Kind = ae.Kind.String()
		data.Context = ae.Op
	}
	e.config.Capture.Log(caplog.Event{
		Timestamp: time.Now(),
		RunID:     e.config.RunID,
		Category:  caplog.CategoryError,
		Test:      test,
		Error:     data,
	})
}

func (e *Engine) notify(ev Event) {
	if e.config.Observer != nil {
		e.config.Observer(ev)
	}
}
