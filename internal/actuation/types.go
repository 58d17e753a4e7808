package actuation

import (
	"fmt"
	"time"

	"github.com/eol-bench/eol-go/pkg/frame"
)

// TestKind selects the actuation sequence.
type TestKind string

const (
	Digital TestKind = "digital"
	Analog  TestKind = "analog"
)

// Descriptor describes one test. It must not change while a run is active.
type Descriptor struct {
	Name string   `yaml:"name"`
	Kind TestKind `yaml:"kind"`

	// FeedbackSignal is the decoded signal that confirms a digital
	// transition. Empty means no feedback; waits then always fail.
	FeedbackSignal string `yaml:"feedback_signal,omitempty"`

	// FeedbackMessageID pins the feedback to one message. When nil, the
	// most recently updated message carrying FeedbackSignal is used.
	FeedbackMessageID *uint32 `yaml:"feedback_message_id,omitempty"`

	Digital *DigitalSpec `yaml:"digital,omitempty"`
	Analog  *AnalogSpec  `yaml:"analog,omitempty"`

	Skip       bool   `yaml:"skip,omitempty"`
	SkipReason string `yaml:"skip_reason,omitempty"`
}

// DigitalSpec configures a digital actuation. Values are raw strings:
// decimal, 0x-prefixed hex, or anything the codec accepts.
type DigitalSpec struct {
	MessageID uint32 `yaml:"message_id"`
	Signal    string `yaml:"signal"`
	ValueLow  string `yaml:"value_low"`
	ValueHigh string `yaml:"value_high"`
	DwellMS   int    `yaml:"dwell_ms"`

	// Selector names the selector label (or number) to send with the
	// signal when the message is multiplexed.
	Selector string `yaml:"selector,omitempty"`
}

// AnalogSpec configures an analog ramp. Mux signals are optional; leaving
// them empty skips the multiplexer steps.
type AnalogSpec struct {
	MessageID        uint32 `yaml:"message_id"`
	CommandSignal    string `yaml:"command_signal"`
	MuxEnableSignal  string `yaml:"mux_enable_signal,omitempty"`
	MuxChannelSignal string `yaml:"mux_channel_signal,omitempty"`
	MuxChannelValue  int    `yaml:"mux_channel_value,omitempty"`
	MinMV            int    `yaml:"min_mv"`
	MaxMV            int    `yaml:"max_mv"`
	StepMV           int    `yaml:"step_mv"`
	DwellMS          int    `yaml:"dwell_ms"`
	Selector         string `yaml:"selector,omitempty"`
}

// Dwell returns the dwell window.
func (s *DigitalSpec) Dwell() time.Duration {
	return time.Duration(s.DwellMS) * time.Millisecond
}

// Dwell returns the per-step hold time.
func (s *AnalogSpec) Dwell() time.Duration {
	return time.Duration(s.DwellMS) * time.Millisecond
}

// Result is the outcome of one run.
type Result struct {
	Passed bool
	Detail string

	// Err is the tagged cause of a failure. Nil when Passed.
	Err error
}

// State is a step of an actuation sequence.
type State int

const (
	StateIdle State = iota

	// Digital.
	StateEnsureLow
	StateActuateHigh
	StateEnsureLowAfterHigh
	StateWaitLowDwell

	// Analog.
	StateDisableMux
	StateSetChannel
	StateSetMin
	StateEnableMux
	StateHoldInitial
	StateRamp

	StateCleanup
	StateDone
)

var stateNames = map[State]string{
	StateIdle:               "IDLE",
	StateEnsureLow:          "ENSURE_LOW",
	StateActuateHigh:        "ACTUATE_HIGH",
	StateEnsureLowAfterHigh: "ENSURE_LOW_AFTER_HIGH",
	StateWaitLowDwell:       "WAIT_LOW_DWELL",
	StateDisableMux:         "DISABLE_MUX",
	StateSetChannel:         "SET_CHANNEL",
	StateSetMin:             "SET_MIN",
	StateEnableMux:          "ENABLE_MUX",
	StateHoldInitial:        "HOLD_INITIAL",
	StateRamp:               "RAMP",
	StateCleanup:            "CLEANUP",
	StateDone:               "DONE",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

// Event reports engine progress to an Observer. Exactly one of the state
// change or the frame fields is meaningful.
type Event struct {
	Time time.Time
	Test string

	// State is the state entered. Zero for frame events.
	State State

	// Frame is set for every transmitted frame, with the fields it was
	// built from.
	Frame  *frame.Frame
	Fields map[string]any
}

// Observer receives progress events. It is called synchronously from the
// engine goroutine and must not block.
type Observer func(Event)
