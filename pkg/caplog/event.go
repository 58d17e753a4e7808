package caplog

import (
	"time"

	"github.com/eol-bench/eol-go/pkg/frame"
)

// Event represents a capture event. CBOR encoding uses integer keys for
// compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the station run (UUID).
	RunID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates frame flow relative to the station.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Test is the name of the test being executed, if any.
	Test string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates a frame received from the bus.
	DirectionIn Direction = 0
	// DirectionOut indicates a frame sent to the bus.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a bus frame.
	CategoryFrame Category = 0
	// CategoryState indicates an engine state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a bus frame.
type FrameEvent struct {
	ID       uint32 `cbor:"1,keyasint"`
	Extended bool   `cbor:"2,keyasint,omitempty"`
	Remote   bool   `cbor:"3,keyasint,omitempty"`
	Data     []byte `cbor:"4,keyasint,omitempty"`
}

// NewFrameEvent builds a frame event for f.
func NewFrameEvent(f frame.Frame) *FrameEvent {
	return &FrameEvent{
		ID:       f.ID,
		Extended: f.Extended,
		Remote:   f.Remote,
		Data:     append([]byte(nil), f.Data...),
	}
}

// Frame converts the event back into a frame.
func (e *FrameEvent) Frame() frame.Frame {
	return frame.Frame{ID: e.ID, Extended: e.Extended, Remote: e.Remote, Data: e.Data}
}

// StateChangeEvent captures an actuation state transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors.
type ErrorEventData struct {
	// Kind is the error kind (transport, encode, timeout, config).
	Kind string `cbor:"1,keyasint,omitempty"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
