// Package station wires a bus adapter, the receive path and the actuation
// engine into a complete end-of-line run.
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eol-bench/eol-go/internal/actuation"
	"github.com/eol-bench/eol-go/internal/profile"
	"github.com/eol-bench/eol-go/internal/reporter"
	"github.com/eol-bench/eol-go/internal/sequencer"
	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/caplog"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/discovery"
	"github.com/eol-bench/eol-go/pkg/feed"
	"github.com/eol-bench/eol-go/pkg/frame"
	"github.com/eol-bench/eol-go/pkg/signalcache"
)

// Config configures a station run.
type Config struct {
	// ProfilePath is a single profile file. Takes precedence over ProfileDir.
	ProfilePath string

	// ProfileDir is a directory of profiles, all of which are run.
	ProfileDir string

	// Pattern filters tests by name (comma-separated globs).
	Pattern string

	// Gateway is the gateway address (host:port).
	Gateway string

	// Discover finds the gateway over mDNS when Gateway is empty.
	Discover bool

	// Interface restricts discovery to one network interface.
	Interface string

	// Simulate replaces the gateway with an in-memory bus and a device
	// that mirrors every digital command onto its feedback signal.
	Simulate bool

	// Timeout bounds each test unless the profile sets its own.
	Timeout time.Duration

	StopOnFirstFailure bool
	Verbose            bool

	// Output receives the report.
	Output io.Writer

	// OutputFormat is "text", "json" or "junit".
	OutputFormat string

	// Capture records frames, state changes and errors. Optional.
	Capture caplog.Logger

	// History stores every suite result. Optional; *history.Store
	// implements it.
	History Recorder

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Recorder persists suite results.
type Recorder interface {
	Record(ctx context.Context, r *sequencer.SuiteResult) error
}

// Runner executes profiles against one bus.
type Runner struct {
	config *Config
	runID  string
	logger *slog.Logger

	// newAdapter is replaced in tests.
	newAdapter func(ctx context.Context) (bus.Adapter, error)

	// sim is the in-memory bus in simulation mode.
	sim       *bus.Loopback
	simDevice bus.Responder
}

// New creates a runner.
func New(config *Config) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "text"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	r := &Runner{
		config: config,
		runID:  uuid.NewString(),
		logger: config.Logger,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.newAdapter = r.openAdapter
	return r
}

// RunID returns the identifier shared by all suites of this run.
func (r *Runner) RunID() string {
	return r.runID
}

// Run loads the profiles, runs every selected test and writes the report.
func (r *Runner) Run(ctx context.Context) ([]*sequencer.SuiteResult, error) {
	profiles, err := r.loadProfiles()
	if err != nil {
		return nil, err
	}

	adapter, err := r.newAdapter(ctx)
	if err != nil {
		return nil, err
	}
	defer adapter.Close()

	rep := r.reporter()
	var results []*sequencer.SuiteResult
	for _, p := range profiles {
		tests := profile.Filter(p.Tests, r.config.Pattern)
		if len(tests) == 0 {
			r.logger.Info("no tests selected", "profile", p.Name, "pattern", r.config.Pattern)
			continue
		}

		res, err := r.runProfile(ctx, adapter, p, tests)
		if res != nil {
			rep.ReportSuite(res)
			r.record(ctx, res)
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// record stores res in the history. Failures are logged; the run's verdict
// does not depend on them.
func (r *Runner) record(ctx context.Context, res *sequencer.SuiteResult) {
	if r.config.History == nil {
		return
	}
	if err := r.config.History.Record(context.WithoutCancel(ctx), res); err != nil {
		r.logger.Warn("history not recorded", "run", res.RunID, "error", err)
	}
}

func (r *Runner) loadProfiles() ([]*profile.Profile, error) {
	switch {
	case r.config.ProfilePath != "":
		p, err := profile.Load(r.config.ProfilePath)
		if err != nil {
			return nil, err
		}
		return []*profile.Profile{p}, nil
	case r.config.ProfileDir != "":
		ps, err := profile.LoadDirectory(r.config.ProfileDir)
		if err != nil {
			return nil, err
		}
		if len(ps) == 0 {
			return nil, fmt.Errorf("no profiles in %s", r.config.ProfileDir)
		}
		return ps, nil
	default:
		return nil, errors.New("a profile file or directory is required")
	}
}

// openAdapter opens the simulated bus or connects to the gateway.
func (r *Runner) openAdapter(ctx context.Context) (bus.Adapter, error) {
	if r.config.Simulate {
		r.sim = bus.NewLoopback(bus.LoopbackConfig{
			Echo:    true,
			Capture: r.config.Capture,
			RunID:   r.runID,
		})
		r.sim.OnSend(func(sent frame.Frame) []frame.Frame {
			if r.simDevice == nil {
				return nil
			}
			return r.simDevice(sent)
		})
		if err := r.sim.Open(ctx); err != nil {
			return nil, err
		}
		r.logger.Info("using simulated bus")
		return r.sim, nil
	}

	addr := r.config.Gateway
	if addr == "" {
		if !r.config.Discover {
			return nil, errors.New("a gateway address, discovery or simulation is required")
		}
		browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: r.config.Interface})
		svc, err := browser.FindFirst(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover gateway: %w", err)
		}
		addr = svc.Address()
		r.logger.Info("discovered gateway", "instance", svc.InstanceName,
			"address", addr, "model", svc.Model, "serial", svc.Serial,
			"bitrate", svc.Bitrate, "protocol", svc.Protocol)
	}

	gw := bus.NewGateway(bus.GatewayConfig{
		Address: addr,
		Capture: r.config.Capture,
		Logger:  r.logger,
		RunID:   r.runID,
	})
	if err := gw.Open(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("connected to gateway", "address", addr)
	return gw, nil
}

// runProfile runs tests with the receive path active alongside.
func (r *Runner) runProfile(ctx context.Context, adapter bus.Adapter, p *profile.Profile, tests []*actuation.Descriptor) (*sequencer.SuiteResult, error) {
	var (
		c           codec.Codec
		fingerprint string
	)
	schema, err := r.loadSchema(p)
	if err != nil {
		return nil, err
	}
	if schema != nil {
		c = schema
		fingerprint = schema.Fingerprint()
	}
	if r.sim != nil {
		r.simDevice = simulateDevice(schema, tests)
	}

	cache := signalcache.New()
	feeder := &feed.Feeder{
		Adapter: adapter,
		Codec:   c,
		Cache:   cache,
		Logger:  r.logger,
	}

	opts := []actuation.Option{actuation.WithLogger(r.logger)}
	if r.config.Capture != nil {
		opts = append(opts, actuation.WithCapture(r.config.Capture, r.runID))
	}
	engine := actuation.New(adapter, c, cache, opts...)

	seq := sequencer.New(engine, &sequencer.Config{
		SuiteName:          p.Name,
		RunID:              r.runID,
		SchemaFingerprint:  fingerprint,
		TestTimeout:        p.Defaults.TestTimeout(r.config.Timeout),
		StopOnFirstFailure: r.config.StopOnFirstFailure,
		OnTestComplete: func(tr *sequencer.TestResult) {
			r.logger.Info("test complete", "test", tr.Test.Name,
				"passed", tr.Passed, "skipped", tr.Skipped, "duration", tr.Duration)
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	feedCtx, stopFeed := context.WithCancel(gctx)
	defer stopFeed()

	g.Go(func() error {
		return feeder.Run(feedCtx)
	})

	var result *sequencer.SuiteResult
	g.Go(func() error {
		defer stopFeed()
		var err error
		result, err = seq.RunSuite(gctx, tests)
		return err
	})

	err = g.Wait()
	stats := feeder.Stats()
	r.logger.Debug("receive path stopped", "received", stats.Received,
		"decoded", stats.Decoded, "unknown", stats.Unknown, "failed", stats.Failed)
	return result, err
}

func (r *Runner) loadSchema(p *profile.Profile) (*codec.Schema, error) {
	if p.Schema == "" {
		r.logger.Warn("profile has no schema, using raw encoding", "profile", p.Name)
		return nil, nil
	}
	schema, err := codec.LoadSchema(p.Schema)
	if err != nil {
		return nil, err
	}
	if err := p.CheckSchema(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (r *Runner) reporter() reporter.Reporter {
	switch r.config.OutputFormat {
	case "json":
		return reporter.NewJSONReporter(r.config.Output, true)
	case "junit":
		return reporter.NewJUnitReporter(r.config.Output)
	default:
		return reporter.NewTextReporter(r.config.Output, r.config.Verbose)
	}
}
