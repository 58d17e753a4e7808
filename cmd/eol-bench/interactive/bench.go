// Package interactive provides the interactive shell of eol-bench.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/eol-bench/eol-go/internal/actuation"
	"github.com/eol-bench/eol-go/internal/station"
)

// Defaults for the watch and run commands.
const (
	DefaultWatchDuration = 5 * time.Second
	DefaultRunTimeout    = 30 * time.Second

	watchInterval = 100 * time.Millisecond
)

// Bench handles interactive mode for eol-bench.
type Bench struct {
	session *station.Session
	rl      *readline.Instance
	out     io.Writer

	// RunTimeout bounds a single "run" command.
	RunTimeout time.Duration
}

// New creates a bench shell reading from the terminal.
func New(session *station.Session) (*Bench, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bench> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(session),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	b := newBench(session, rl.Stdout())
	b.rl = rl
	return b, nil
}

func newBench(session *station.Session, out io.Writer) *Bench {
	return &Bench{session: session, out: out, RunTimeout: DefaultRunTimeout}
}

// completer offers command names and the profile's test names.
func completer(session *station.Session) readline.AutoCompleter {
	tests := make([]readline.PrefixCompleterInterface, 0, len(session.Profile.Tests))
	for _, d := range session.Profile.Tests {
		tests = append(tests, readline.PcItem(d.Name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("signals"),
		readline.PcItem("send"),
		readline.PcItem("raw"),
		readline.PcItem("get"),
		readline.PcItem("watch"),
		readline.PcItem("run", tests...),
		readline.PcItem("stats"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that coordinates with the readline prompt.
func (b *Bench) Stdout() io.Writer {
	return b.out
}

// Run starts the interactive command loop.
func (b *Bench) Run(ctx context.Context, cancel context.CancelFunc) {
	defer b.rl.Close()

	b.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := b.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(b.out, "Exiting...")
			cancel()
			return
		}

		if b.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It reports whether the shell should exit.
func (b *Bench) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		b.printHelp()
	case "list", "l":
		b.cmdList()
	case "signals", "sig":
		b.cmdSignals()
	case "send", "s":
		b.cmdSend(ctx, args)
	case "raw":
		b.cmdRaw(ctx, args)
	case "get", "g":
		b.cmdGet(args)
	case "watch", "w":
		b.cmdWatch(ctx, args)
	case "run", "r":
		b.cmdRun(ctx, args)
	case "stats":
		b.cmdStats()
	case "quit", "exit", "q":
		fmt.Fprintln(b.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(b.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (b *Bench) printHelp() {
	fmt.Fprintln(b.out, `
EOL Bench Commands:
  Bus:
    send <id> <sig=val>...  - Encode with the schema and send (e.g. send 0x200 CmdType=2 RelayK1=1)
    raw <id> <hex>          - Send raw payload bytes (e.g. raw 0x200 0201)
    get <signal> [id]       - Show the latest cached value of a signal
    watch <signal> [secs]   - Print changes of a signal for a while
    signals                 - Show all cached signal values
    stats                   - Show receive path counters

  Tests:
    list                    - List the profile's tests
    run <test>              - Run one test and show its result

  General:
    help                    - Show this help
    quit                    - Exit`)
}

func (b *Bench) cmdList() {
	p := b.session.Profile
	fmt.Fprintf(b.out, "\n%s (%d tests)\n", p.Name, len(p.Tests))
	for _, d := range p.Tests {
		line := fmt.Sprintf("  %-24s %-8s", d.Name, d.Kind)
		if d.FeedbackSignal != "" {
			line += " feedback=" + d.FeedbackSignal
		}
		if d.Skip {
			line += " [skip"
			if d.SkipReason != "" {
				line += ": " + d.SkipReason
			}
			line += "]"
		}
		fmt.Fprintln(b.out, line)
	}
}

func (b *Bench) cmdSignals() {
	entries := b.session.Cache.Snapshot()
	if len(entries) == 0 {
		fmt.Fprintln(b.out, "No signals received yet")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(b.out, "  0x%03X %-24s %-10v %s\n",
			e.MessageID, e.Signal, e.Value, e.Timestamp.Format("15:04:05.000"))
	}
}

func (b *Bench) cmdSend(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(b.out, "Usage: send <id> <signal=value>...")
		return
	}
	id, err := ParseID(args[0])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}
	fields, err := ParseAssignments(args[1:])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}
	f, err := b.session.Send(ctx, id, fields)
	if err != nil {
		fmt.Fprintf(b.out, "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(b.out, "Sent %s\n", f)
}

func (b *Bench) cmdRaw(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(b.out, "Usage: raw <id> [hex bytes]")
		return
	}
	id, err := ParseID(args[0])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}
	data, err := ParsePayload(args[1:])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}
	f, err := b.session.SendRaw(ctx, id, data)
	if err != nil {
		fmt.Fprintf(b.out, "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(b.out, "Sent %s\n", f)
}

func (b *Bench) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(b.out, "Usage: get <signal> [id]")
		return
	}
	signal := args[0]
	if len(args) > 1 {
		id, err := ParseID(args[1])
		if err != nil {
			fmt.Fprintf(b.out, "Error: %v\n", err)
			return
		}
		e, ok := b.session.Cache.GetLatest(id, signal)
		if !ok {
			fmt.Fprintf(b.out, "%s: no value on 0x%X\n", signal, id)
			return
		}
		fmt.Fprintf(b.out, "%s = %v (0x%X, %s ago)\n", signal, e.Value, id, age(e.Timestamp))
		return
	}
	id, e, ok := b.session.Cache.LatestBySignal(signal)
	if !ok {
		fmt.Fprintf(b.out, "%s: no value\n", signal)
		return
	}
	fmt.Fprintf(b.out, "%s = %v (0x%X, %s ago)\n", signal, e.Value, id, age(e.Timestamp))
}

func (b *Bench) cmdWatch(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(b.out, "Usage: watch <signal> [seconds]")
		return
	}
	signal := args[0]
	d := DefaultWatchDuration
	if len(args) > 1 {
		secs, ok := ParseValue(args[1]).(int64)
		if !ok || secs <= 0 {
			fmt.Fprintf(b.out, "Invalid duration: %s\n", args[1])
			return
		}
		d = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	var last time.Time
	changes := 0
	for {
		if _, e, ok := b.session.Cache.LatestBySignal(signal); ok && e.Timestamp.After(last) {
			last = e.Timestamp
			changes++
			fmt.Fprintf(b.out, "  %s %s = %v\n", e.Timestamp.Format("15:04:05.000"), signal, e.Value)
		}
		select {
		case <-ctx.Done():
			fmt.Fprintf(b.out, "%d updates\n", changes)
			return
		case <-ticker.C:
		}
	}
}

func (b *Bench) cmdRun(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(b.out, "Usage: run <test>")
		return
	}
	d, ok := b.session.Test(args[0])
	if !ok {
		fmt.Fprintf(b.out, "Unknown test: %s (known: %s)\n", args[0], strings.Join(b.testNames(), ", "))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.RunTimeout)
	defer cancel()

	start := time.Now()
	res, err := b.session.Engine.Run(ctx, d)
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(b.out, "[%s] %s (%s)\n", status, d.Name, time.Since(start).Round(time.Millisecond))
	if res.Detail != "" {
		fmt.Fprintf(b.out, "  %s\n", res.Detail)
	}
	if kind, ok := actuation.KindOf(res.Err); ok {
		fmt.Fprintf(b.out, "  Kind: %s\n", kind)
	}
}

func (b *Bench) cmdStats() {
	st := b.session.Stats()
	fmt.Fprintf(b.out, "Received: %d  Decoded: %d  Unknown: %d  Failed: %d  Cached: %d\n",
		st.Received, st.Decoded, st.Unknown, st.Failed, b.session.Cache.Len())
}

func (b *Bench) testNames() []string {
	names := make([]string, 0, len(b.session.Profile.Tests))
	for _, d := range b.session.Profile.Tests {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

func age(ts time.Time) time.Duration {
	return time.Since(ts).Round(time.Millisecond)
}
