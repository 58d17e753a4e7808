package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/eol-bench/eol-go/pkg/caplog"
)

// Stats contains aggregate figures for a capture file.
type Stats struct {
	TotalEvents int
	FirstEvent  time.Time
	LastEvent   time.Time

	FramesIn  int
	FramesOut int
	States    int
	Errors    int

	// ByFrameID counts frame events per identifier.
	ByFrameID map[uint32]int

	// ByTest counts events per test name.
	ByTest map[string]int

	// ErrorKinds counts error events per kind.
	ErrorKinds map[string]int

	Runs map[string]struct{}
}

// Duration returns the time span covered by the capture.
func (s *Stats) Duration() time.Duration {
	if s.TotalEvents == 0 {
		return 0
	}
	return s.LastEvent.Sub(s.FirstEvent)
}

// CollectStats reads every event from path matching filter.
func CollectStats(path string, filter caplog.Filter) (*Stats, error) {
	reader, err := caplog.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		ByFrameID:  make(map[uint32]int),
		ByTest:     make(map[string]int),
		ErrorKinds: make(map[string]int),
		Runs:       make(map[string]struct{}),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event caplog.Event) {
	if s.TotalEvents == 0 || event.Timestamp.Before(s.FirstEvent) {
		s.FirstEvent = event.Timestamp
	}
	if event.Timestamp.After(s.LastEvent) {
		s.LastEvent = event.Timestamp
	}
	s.TotalEvents++

	if event.RunID != "" {
		s.Runs[event.RunID] = struct{}{}
	}
	if event.Test != "" {
		s.ByTest[event.Test]++
	}

	switch {
	case event.Frame != nil:
		if event.Direction == caplog.DirectionOut {
			s.FramesOut++
		} else {
			s.FramesIn++
		}
		s.ByFrameID[event.Frame.ID]++
	case event.StateChange != nil:
		s.States++
	case event.Error != nil:
		s.Errors++
		kind := event.Error.Kind
		if kind == "" {
			kind = "unknown"
		}
		s.ErrorKinds[kind]++
	}
}

// RunStats executes the stats command.
func RunStats(path string, filter caplog.Filter, output io.Writer) error {
	stats, err := CollectStats(path, filter)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "File: %s\n", path)
	fmt.Fprintf(output, "Events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return nil
	}
	fmt.Fprintf(output, "Span: %s .. %s (%s)\n",
		stats.FirstEvent.UTC().Format(timeLayout),
		stats.LastEvent.UTC().Format(timeLayout),
		stats.Duration().Round(time.Millisecond))
	fmt.Fprintf(output, "Runs: %d\n", len(stats.Runs))
	fmt.Fprintf(output, "\nFrames: %d in, %d out\n", stats.FramesIn, stats.FramesOut)

	ids := make([]uint32, 0, len(stats.ByFrameID))
	for id := range stats.ByFrameID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(output, "  0x%03X: %d\n", id, stats.ByFrameID[id])
	}

	fmt.Fprintf(output, "\nState changes: %d\n", stats.States)

	if len(stats.ByTest) > 0 {
		fmt.Fprintln(output, "\nBy test:")
		for _, name := range sortedKeys(stats.ByTest) {
			fmt.Fprintf(output, "  %s: %d\n", name, stats.ByTest[name])
		}
	}

	fmt.Fprintf(output, "\nErrors: %d\n", stats.Errors)
	for _, kind := range sortedKeys(stats.ErrorKinds) {
		fmt.Fprintf(output, "  %s: %d\n", kind, stats.ErrorKinds[kind])
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
