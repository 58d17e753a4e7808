// Command eol-bench is an interactive shell for poking a device on a CAN bus
// by hand: send frames, read signals and run single profile tests.
//
// Usage:
//
//	eol-bench [flags]
//
// Flags:
//
//	-profile string     Path to a test profile (YAML), required
//	-gateway string     CAN gateway address (host:port)
//	-discover           Find the gateway over mDNS
//	-iface string       Network interface for discovery
//	-sim                Use a simulated bus and device
//	-capture string     File path for frame capture (CBOR format)
//	-log-level string   Log level: debug, info, warn, error (default "warn")
//
// Examples:
//
//	# Open a bench on a discovered gateway
//	eol-bench -profile boards/relay.yaml -discover
//
//	# Try commands against the simulator
//	eol-bench -profile boards/relay.yaml -sim
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eol-bench/eol-go/cmd/eol-bench/interactive"
	"github.com/eol-bench/eol-go/internal/station"
	"github.com/eol-bench/eol-go/pkg/caplog"
)

var (
	profilePath = flag.String("profile", "", "Path to a test profile (YAML)")
	gateway     = flag.String("gateway", "", "CAN gateway address (host:port)")
	discover    = flag.Bool("discover", false, "Find the gateway over mDNS")
	iface       = flag.String("iface", "", "Network interface for discovery")
	sim         = flag.Bool("sim", false, "Use a simulated bus and device")
	capturePath = flag.String("capture", "", "File path for frame capture (CBOR format)")
	logLevel    = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	if *profilePath == "" {
		fmt.Fprintln(os.Stderr, "Error: -profile is required")
		flag.Usage()
		os.Exit(1)
	}
	if *gateway == "" && !*discover && !*sim {
		fmt.Fprintln(os.Stderr, "Error: one of -gateway, -discover or -sim is required")
		flag.Usage()
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	config := &station.Config{
		ProfilePath: *profilePath,
		Gateway:     *gateway,
		Discover:    *discover,
		Interface:   *iface,
		Simulate:    *sim,
		Logger:      logger,
	}

	var sinks []caplog.Logger
	if *capturePath != "" {
		capture, err := caplog.NewFileLogger(*capturePath)
		if err != nil {
			return fmt.Errorf("failed to create capture log: %w", err)
		}
		defer capture.Close()
		sinks = append(sinks, capture)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		sinks = append(sinks, caplog.NewSlogAdapter(logger))
	}
	if len(sinks) > 0 {
		config.Capture = caplog.NewMultiLogger(sinks...)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := station.New(config)
	session, err := runner.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	bench, err := interactive.New(session)
	if err != nil {
		return err
	}

	fmt.Fprintf(bench.Stdout(), "Profile: %s (%d tests)  Run: %s\n",
		session.Profile.Name, len(session.Profile.Tests), runner.RunID())
	bench.Run(ctx, cancel)
	return nil
}
