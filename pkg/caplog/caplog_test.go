package caplog

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eol-bench/eol-go/pkg/frame"
)

func TestFrameEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 0, 0, 123456789, time.UTC)
	original := Event{
		Timestamp: ts,
		RunID:     "run-1",
		Direction: DirectionOut,
		Category:  CategoryFrame,
		Test:      "relay_k1",
		Frame:     NewFrameEvent(frame.Frame{ID: 0x18FF50E5, Extended: true, Data: []byte{1, 2, 3}}),
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Frame == nil {
		t.Fatal("Frame is nil")
	}
	if got := decoded.Frame.Frame().String(); got != "18FF50E5#010203" {
		t.Errorf("Frame: got %s", got)
	}
	if decoded.Test != "relay_k1" {
		t.Errorf("Test: got %q", decoded.Test)
	}
}

func TestFileLoggerAndFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.clog")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	now := time.Now()
	fl.Log(Event{Timestamp: now, Direction: DirectionOut, Category: CategoryFrame,
		Frame: NewFrameEvent(frame.Frame{ID: 0x100, Data: []byte{0}})})
	fl.Log(Event{Timestamp: now, Direction: DirectionIn, Category: CategoryFrame,
		Frame: NewFrameEvent(frame.Frame{ID: 0x200, Data: []byte{1}})})
	fl.Log(Event{Timestamp: now, Category: CategoryState,
		StateChange: &StateChangeEvent{OldState: "EnsureLow", NewState: "ActuateHigh"}})

	if err := fl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close and late log are harmless.
	if err := fl.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	fl.Log(Event{})

	id := uint32(0x200)
	r, err := NewFilteredReader(path, Filter{FrameID: &id})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Direction != DirectionIn || ev.Frame.ID != 0x200 {
		t.Errorf("unexpected event %+v", ev)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestFilterMatches(t *testing.T) {
	in := DirectionIn
	state := CategoryState
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ev := Event{Timestamp: start.Add(time.Second), RunID: "a", Direction: DirectionIn, Category: CategoryState}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"Empty", Filter{}, true},
		{"RunID", Filter{RunID: "a"}, true},
		{"OtherRun", Filter{RunID: "b"}, false},
		{"Direction", Filter{Direction: &in}, true},
		{"Category", Filter{Category: &state}, true},
		{"TimeStart", Filter{TimeStart: &start}, true},
		{"TimeEnd", Filter{TimeEnd: &start}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(ev); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestMultiLogger(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{Test: "x"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("events: a=%d b=%d, want 1 each", len(a.events), len(b.events))
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(Event{
		Direction: DirectionOut,
		Category:  CategoryFrame,
		Frame:     NewFrameEvent(frame.Frame{ID: 0x123, Data: []byte{0xAB}}),
	})

	out := buf.String()
	if !strings.Contains(out, "frame=123#AB") {
		t.Errorf("output missing frame: %s", out)
	}
	if !strings.Contains(out, "direction=OUT") {
		t.Errorf("output missing direction: %s", out)
	}
}

func TestCompressedCaptureAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.clog"+CompressedSuffix)
	if !IsCompressed(path) {
		t.Fatal("IsCompressed = false for .zst path")
	}

	// Two sessions append two zstd frames to the same file.
	for session := 0; session < 2; session++ {
		fl, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		for i := 0; i < 50; i++ {
			fl.Log(Event{
				Timestamp: time.Now(),
				RunID:     "run-" + string(rune('a'+session)),
				Direction: DirectionOut,
				Category:  CategoryFrame,
				Frame:     NewFrameEvent(frame.Frame{ID: uint32(0x100 + i), Data: []byte{byte(i)}}),
			})
		}
		if err := fl.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	r, err := NewFilteredReader(path, Filter{RunID: "run-b"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Close()

	count := 0
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev.Frame.ID != uint32(0x100+count) {
			t.Errorf("event %d: id 0x%X", count, ev.Frame.ID)
		}
		count++
	}
	if count != 50 {
		t.Errorf("read %d events, want 50", count)
	}
}

func TestEncodeEventDeterministic(t *testing.T) {
	ev := Event{
		Timestamp: time.Date(2026, 3, 2, 8, 0, 0, 1, time.UTC),
		Category:  CategoryError,
		Error:     &ErrorEventData{Kind: "timeout", Message: "feedback never matched", Context: "wait high"},
	}
	a, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	b, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same event twice gave different bytes")
	}
	if _, err := DecodeEvent(a[:len(a)-1]); err == nil {
		t.Error("DecodeEvent accepted a truncated event")
	}
}
