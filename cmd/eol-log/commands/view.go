// Package commands implements the eol-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/eol-bench/eol-go/pkg/caplog"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event caplog.Event) {
	ts := event.Timestamp.UTC().Format(timeLayout)

	var label string
	switch {
	case event.Frame != nil:
		label = event.Frame.Frame().String()
	case event.StateChange != nil:
		label = event.StateChange.NewState
	case event.Error != nil:
		label = event.Error.Kind
	}

	fmt.Fprintf(w, "%s [run:%s] %-3s %-5s %s\n",
		ts, shortenRunID(event.RunID), event.Direction, event.Category, label)

	if event.Test != "" {
		fmt.Fprintf(w, "  Test: %s\n", event.Test)
	}
	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
}

// shortenRunID returns the first 8 characters of the run ID.
func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func formatFrameDetails(w io.Writer, fe *caplog.FrameEvent) {
	kind := "std"
	if fe.Extended {
		kind = "ext"
	}
	fmt.Fprintf(w, "  ID: 0x%X (%s)  DLC: %d", fe.ID, kind, len(fe.Data))
	if len(fe.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(fe.Data))
	}
	fmt.Fprintln(w)
}

func formatStateChangeDetails(w io.Writer, sc *caplog.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, e *caplog.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ParseDirectionFlag parses a direction string from a command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (caplog.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return caplog.DirectionIn, nil
	case "out":
		return caplog.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (caplog.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return caplog.CategoryFrame, nil
	case "state":
		return caplog.CategoryState, nil
	case "error":
		return caplog.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be frame, state, or error)", s)
	}
}

// ParseFrameIDFlag parses a frame identifier given in hex (0x-prefixed) or decimal.
func ParseFrameIDFlag(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid frame id: %w", err)
	}
	return uint32(v), nil
}

// FilterOptions holds the string form of the filter flags shared by the
// subcommands.
type FilterOptions struct {
	RunID     string
	Test      string
	Direction string
	Category  string
	FrameID   string
	TimeStart string
	TimeEnd   string
}

// Build converts the options into a caplog.Filter.
func (o FilterOptions) Build() (caplog.Filter, error) {
	f := caplog.Filter{RunID: o.RunID, Test: o.Test}

	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.FrameID != "" {
		id, err := ParseFrameIDFlag(o.FrameID)
		if err != nil {
			return f, err
		}
		f.FrameID = &id
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start format: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end format: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// RunView executes the view command.
func RunView(path string, filter caplog.Filter, output io.Writer) error {
	reader, err := caplog.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
