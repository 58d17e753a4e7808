package codec

import (
	"errors"
	"fmt"
)

// Byte orders.
const (
	// LittleEndian is Intel byte order; start bit is the LSB.
	LittleEndian = "little"
	// BigEndian is Motorola byte order; start bit is the MSB.
	BigEndian = "big"
)

// Codec encodes named-field maps into payloads and back.
type Codec interface {
	// Encode builds the payload of message id from fields.
	Encode(id uint32, fields map[string]any) ([]byte, error)

	// Decode extracts all signals of message id present in data.
	Decode(id uint32, data []byte) (map[string]any, error)

	// Message returns the definition of message id.
	Message(id uint32) (*Message, bool)
}

// Signal is a named field inside a message payload.
type Signal struct {
	Name      string         `yaml:"name"`
	StartBit  int            `yaml:"start_bit"`
	Length    int            `yaml:"length"`
	ByteOrder string         `yaml:"byte_order,omitempty"`
	Signed    bool           `yaml:"signed,omitempty"`
	Factor    float64        `yaml:"factor,omitempty"`
	Offset    float64        `yaml:"offset,omitempty"`
	Min       *float64       `yaml:"min,omitempty"`
	Max       *float64       `yaml:"max,omitempty"`
	Unit      string         `yaml:"unit,omitempty"`
	Comment   string         `yaml:"comment,omitempty"`
	Choices   map[int]string `yaml:"choices,omitempty"`

	// Mux is the selector value this signal is scoped to. Nil means the
	// signal is always present.
	Mux *int `yaml:"mux,omitempty"`
}

// Range returns the smallest and largest physical value sig can carry,
// narrowed by its declared min and max.
func (s *Signal) Range() (lo, hi float64) {
	rawLo, rawHi := 0.0, unsignedMax(s.Length)
	if s.Signed {
		rawLo, rawHi = signedBounds(s.Length)
	}
	factor := s.Factor
	if factor == 0 {
		factor = 1
	}
	lo, hi = rawLo*factor+s.Offset, rawHi*factor+s.Offset
	if lo > hi {
		lo, hi = hi, lo
	}
	if s.Min != nil && *s.Min > lo {
		lo = *s.Min
	}
	if s.Max != nil && *s.Max < hi {
		hi = *s.Max
	}
	return lo, hi
}

// Message is a frame definition.
type Message struct {
	ID      uint32   `yaml:"id"`
	Name    string   `yaml:"name"`
	Length  int      `yaml:"length"`
	CycleMS int      `yaml:"cycle_ms,omitempty"`
	Signals []Signal `yaml:"signals"`

	// Selector names the multiplexer signal, if any.
	Selector string `yaml:"selector,omitempty"`

	byName map[string]*Signal
}

// Signal returns the named signal.
func (m *Message) Signal(name string) (*Signal, bool) {
	s, ok := m.byName[name]
	return s, ok
}

// SelectorSignal returns the multiplexer signal, if the message has one.
func (m *Message) SelectorSignal() (*Signal, bool) {
	if m.Selector == "" {
		return nil, false
	}
	return m.Signal(m.Selector)
}

// SelectorChoices returns the selector value labels, or nil.
func (m *Message) SelectorChoices() map[int]string {
	sel, ok := m.SelectorSignal()
	if !ok {
		return nil
	}
	return sel.Choices
}

// Codec errors.
var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrUnknownSignal  = errors.New("unknown signal")
	ErrOutOfRange     = errors.New("value out of range")
	ErrNotNumeric     = errors.New("value is not numeric")
)

// EncodeError reports a failure to build a payload.
type EncodeError struct {
	MessageID uint32
	Signal    string
	Err       error
}

func (e *EncodeError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("encode 0x%X.%s: %v", e.MessageID, e.Signal, e.Err)
	}
	return fmt.Sprintf("encode 0x%X: %v", e.MessageID, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a failure to decode a payload.
type DecodeError struct {
	MessageID uint32

	// Short is set when the payload is shorter than the declared length.
	Short bool
	Want  int
	Got   int

	Err error
}

func (e *DecodeError) Error() string {
	if e.Short {
		return fmt.Sprintf("decode 0x%X: payload %d bytes, want %d", e.MessageID, e.Got, e.Want)
	}
	return fmt.Sprintf("decode 0x%X: %v", e.MessageID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
