package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/eol-bench/eol-go/pkg/caplog"
)

// RunExport writes the events matching filter in the given format ("jsonl"
// or "csv") to output, or to stdout when output is empty.
func RunExport(path string, filter caplog.Filter, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return Export(path, filter, format, w)
}

// Export streams the matching events of path into w.
func Export(path string, filter caplog.Filter, format string, w io.Writer) error {
	var write func(*caplog.Reader, io.Writer) error
	switch format {
	case "jsonl":
		write = exportJSONL
	case "csv":
		write = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := caplog.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()
	return write(reader, w)
}

func exportJSONL(reader *caplog.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *caplog.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "run_id", "direction", "category", "test", "frame_id", "data", "state", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var frameID, data, state, errMsg string
		switch {
		case event.Frame != nil:
			frameID = "0x" + strconv.FormatUint(uint64(event.Frame.ID), 16)
			data = hex.EncodeToString(event.Frame.Data)
		case event.StateChange != nil:
			state = event.StateChange.NewState
		case event.Error != nil:
			errMsg = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format(timeLayout),
			event.RunID,
			event.Direction.String(),
			event.Category.String(),
			event.Test,
			frameID,
			data,
			state,
			errMsg,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
