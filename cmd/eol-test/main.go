// Command eol-test runs end-of-line actuation tests against a device on a
// CAN bus.
//
// Usage:
//
//	eol-test [flags] [test-pattern]
//
// Flags:
//
//	-profile string     Path to a test profile (YAML)
//	-tests string       Directory of test profiles (used when -profile is empty)
//	-gateway string     CAN gateway address (host:port)
//	-discover           Find the gateway over mDNS
//	-iface string       Network interface for discovery
//	-sim                Run against a simulated bus and device
//	-capture string     File path for frame capture (CBOR; .zst compresses)
//	-history string     SQLite database that records every run
//	-timeout duration   Per-test timeout (default 30s)
//	-stop-on-fail       Stop after the first failing test
//	-verbose            Enable verbose output
//	-json               Output results as JSON
//	-junit              Output results as JUnit XML
//
// Examples:
//
//	# Run a profile through a gateway
//	eol-test -profile boards/relay.yaml -gateway 192.168.1.50:20001
//
//	# Find the gateway automatically and run only relay tests
//	eol-test -profile boards/relay.yaml -discover "relay-*"
//
//	# Dry run against the simulator
//	eol-test -profile boards/relay.yaml -sim -verbose
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/eol-bench/eol-go/internal/history"
	"github.com/eol-bench/eol-go/internal/station"
	"github.com/eol-bench/eol-go/pkg/caplog"
	"github.com/eol-bench/eol-go/pkg/version"
)

var (
	profilePath = flag.String("profile", "", "Path to a test profile (YAML)")
	testsDir    = flag.String("tests", "", "Directory of test profiles")
	gateway     = flag.String("gateway", "", "CAN gateway address (host:port)")
	discover    = flag.Bool("discover", false, "Find the gateway over mDNS")
	iface       = flag.String("iface", "", "Network interface for discovery")
	sim         = flag.Bool("sim", false, "Run against a simulated bus and device")
	capturePath = flag.String("capture", "", "File path for frame capture (CBOR format, .zst compresses)")
	historyPath = flag.String("history", "", "SQLite database that records every run")
	timeout     = flag.Duration("timeout", 30*time.Second, "Per-test timeout")
	stopOnFail  = flag.Bool("stop-on-fail", false, "Stop after the first failing test")
	verbose     = flag.Bool("verbose", false, "Enable verbose output")
	jsonOut     = flag.Bool("json", false, "Output results as JSON")
	junitOut    = flag.Bool("junit", false, "Output results as JUnit XML")
)

func main() {
	flag.Parse()

	pattern := ""
	if flag.NArg() > 0 {
		pattern = flag.Arg(0)
	}

	if *profilePath == "" && *testsDir == "" {
		fmt.Fprintln(os.Stderr, "Error: a profile is required (-profile or -tests)")
		flag.Usage()
		os.Exit(1)
	}
	if *gateway == "" && !*discover && !*sim {
		fmt.Fprintln(os.Stderr, "Error: one of -gateway, -discover or -sim is required")
		flag.Usage()
		os.Exit(1)
	}

	outputFormat := "text"
	if *jsonOut {
		outputFormat = "json"
	} else if *junitOut {
		outputFormat = "junit"
	}

	level := slog.LevelWarn
	if outputFormat == "text" {
		level = slog.LevelInfo
		if *verbose {
			level = slog.LevelDebug
		}
		log.SetFlags(log.Ltime)
		printBanner()
		if *profilePath != "" {
			log.Printf("Profile: %s", *profilePath)
		} else {
			log.Printf("Profiles: %s", *testsDir)
		}
		if pattern != "" {
			log.Printf("Pattern: %s", pattern)
		}
		log.Printf("Wire protocol: %s", version.Current)
		log.Println()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var capture *caplog.FileLogger
	if *capturePath != "" {
		var err error
		capture, err = caplog.NewFileLogger(*capturePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create capture log: %v\n", err)
			os.Exit(1)
		}
		defer capture.Close()
		if outputFormat == "text" {
			log.Printf("Capturing frames to: %s", *capturePath)
		}
	}

	config := &station.Config{
		ProfilePath:        *profilePath,
		ProfileDir:         *testsDir,
		Pattern:            pattern,
		Gateway:            *gateway,
		Discover:           *discover,
		Interface:          *iface,
		Simulate:           *sim,
		Timeout:            *timeout,
		StopOnFirstFailure: *stopOnFail,
		Verbose:            *verbose,
		Output:             os.Stdout,
		OutputFormat:       outputFormat,
		Logger:             logger,
	}
	// Only set capture when there is a sink, to avoid a typed-nil interface.
	var sinks []caplog.Logger
	if capture != nil {
		sinks = append(sinks, capture)
	}
	if *verbose && outputFormat == "text" {
		sinks = append(sinks, caplog.NewSlogAdapter(logger))
	}
	if len(sinks) > 0 {
		config.Capture = caplog.NewMultiLogger(sinks...)
	}

	if *historyPath != "" {
		store, err := history.Open(*historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exit(capture, 1)
		}
		defer store.Close()
		config.History = store
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	results, err := station.New(config).Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(capture, 1)
	}

	for _, res := range results {
		if !res.Passed() {
			exit(capture, 1)
		}
	}
}

// exit flushes the capture log before leaving; deferred calls do not run
// on os.Exit.
func exit(capture *caplog.FileLogger, code int) {
	if capture != nil {
		capture.Close()
	}
	os.Exit(code)
}

func printBanner() {
	fmt.Print(`
 _____ ___  _       _____         _
| ____/ _ \| |     |_   _|__  ___| |_
|  _|| | | | |       | |/ _ \/ __| __|
| |__| |_| | |___    | |  __/\__ \ |_
|_____\___/|_____|   |_|\___||___/\__|

End-of-Line Actuation Test Runner
`)
}
