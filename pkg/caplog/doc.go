// Package caplog provides structured bus capture logging.
//
// This package defines the Logger interface and Event types for capturing
// everything that crosses the bus adapter during a validation run: raw frames
// in both directions, engine state transitions and errors. It is separate from
// operational logging (slog) - capture provides a complete machine-readable
// trace for debugging a failed station run after the fact.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.Capture = caplog.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Capture, _ = caplog.NewFileLogger("/var/log/eol/station.clog")
//
//	// Both: use MultiLogger
//	cfg.Capture = caplog.NewMultiLogger(console, file)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .clog
// extension. A trailing .zst (station.clog.zst) wraps the stream in zstd.
// The eol-log CLI tool provides viewing, export and statistics for both.
package caplog
