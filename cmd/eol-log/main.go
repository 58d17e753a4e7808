// Command eol-log views and analyzes frame capture files.
//
// Capture files are written by eol-test and eol-bench when run with the
// -capture flag.
//
// Usage:
//
//	eol-log <command> [flags] <file.clog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSONL or CSV
//	stats    Show statistics about the capture
//	history  List recorded runs from an eol-test -history database
//
// Examples:
//
//	# View only frames sent by the station
//	eol-log view -direction out bench.clog
//
//	# View traffic of one identifier during one test
//	eol-log view -id 0x101 -test relay_k1 bench.clog
//
//	# Export to CSV
//	eol-log export -format csv -o bench.csv bench.clog
//
//	# Last ten executions of one test
//	eol-log history -test relay_k1 station.db
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/eol-bench/eol-go/cmd/eol-log/commands"
)

const usage = `eol-log - CAN capture analyzer

Usage:
  eol-log <command> [flags] <file.clog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSONL or CSV
  stats    Show statistics about the capture
  history  List recorded runs from an eol-test -history database

Use "eol-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "history":
		runHistory(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	var o commands.FilterOptions
	fs.StringVar(&o.RunID, "run", "", "Filter by run ID")
	fs.StringVar(&o.Test, "test", "", "Filter by test name")
	fs.StringVar(&o.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&o.Category, "category", "", "Filter by category (frame, state, error)")
	fs.StringVar(&o.FrameID, "id", "", "Filter frames by identifier (hex 0x... or decimal)")
	fs.StringVar(&o.TimeStart, "time-start", "", "Events at or after this time (RFC3339)")
	fs.StringVar(&o.TimeEnd, "time-end", "", "Events before this time (RFC3339)")
	return &o
}

// parseArgs parses args, requires the capture path and builds the filter.
func parseArgs(fs *flag.FlagSet, opts *commands.FilterOptions, args []string) (string, commands.FilterOptions) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0), *opts
}

func subUsage(fs *flag.FlagSet, head string) {
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, head)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	subUsage(fs, `eol-log view - View capture in human-readable format

Usage:
  eol-log view [flags] <file.clog>
`)
	opts := filterFlags(fs)
	path, o := parseArgs(fs, opts, args)

	filter, err := o.Build()
	if err != nil {
		fatal(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	subUsage(fs, `eol-log export - Export capture to JSONL or CSV

Usage:
  eol-log export [flags] <file.clog>
`)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path, o := parseArgs(fs, opts, args)

	filter, err := o.Build()
	if err != nil {
		fatal(err)
	}
	if err := commands.RunExport(path, filter, *format, *output); err != nil {
		fatal(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	subUsage(fs, `eol-log stats - Show statistics about the capture

Usage:
  eol-log stats [flags] <file.clog>
`)
	opts := filterFlags(fs)
	path, o := parseArgs(fs, opts, args)

	filter, err := o.Build()
	if err != nil {
		fatal(err)
	}
	if err := commands.RunStats(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	subUsage(fs, `eol-log history - List recorded runs

Usage:
  eol-log history [flags] <station.db>
`)
	test := fs.String("test", "", "Show executions of one test")
	limit := fs.Int("n", 10, "Maximum number of rows")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: history database path required")
		fs.Usage()
		os.Exit(1)
	}
	if err := commands.RunHistory(context.Background(), fs.Arg(0), *test, *limit, os.Stdout); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
