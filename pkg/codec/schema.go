package codec

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Schema is a set of message definitions.
type Schema struct {
	Name     string    `yaml:"name"`
	Version  string    `yaml:"version,omitempty"`
	Messages []Message `yaml:"messages"`

	byID   map[uint32]*Message
	source []byte
}

// LoadError reports a schema that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Cause }

// ParseSchema parses and validates a schema from YAML bytes.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	s.source = append([]byte(nil), data...)
	if err := s.index(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchema loads a schema from a file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	s, err := ParseSchema(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, err
	}
	return s, nil
}

func (s *Schema) index() error {
	s.byID = make(map[uint32]*Message, len(s.Messages))
	for i := range s.Messages {
		m := &s.Messages[i]
		if _, dup := s.byID[m.ID]; dup {
			return &LoadError{Message: fmt.Sprintf("duplicate message id 0x%X", m.ID)}
		}
		if m.Length < 0 || m.Length > 8 {
			return &LoadError{Message: fmt.Sprintf("message %s: length %d outside 0..8", m.Name, m.Length)}
		}
		m.byName = make(map[string]*Signal, len(m.Signals))
		for j := range m.Signals {
			sig := &m.Signals[j]
			if sig.Factor == 0 {
				sig.Factor = 1
			}
			if sig.ByteOrder == "" {
				sig.ByteOrder = LittleEndian
			}
			if sig.ByteOrder != LittleEndian && sig.ByteOrder != BigEndian {
				return &LoadError{Message: fmt.Sprintf("signal %s.%s: byte order %q", m.Name, sig.Name, sig.ByteOrder)}
			}
			if sig.Length < 1 || sig.Length > 64 {
				return &LoadError{Message: fmt.Sprintf("signal %s.%s: length %d outside 1..64", m.Name, sig.Name, sig.Length)}
			}
			if !fits(sig, m.Length) {
				return &LoadError{Message: fmt.Sprintf("signal %s.%s does not fit in %d bytes", m.Name, sig.Name, m.Length)}
			}
			m.byName[sig.Name] = sig
		}
		if m.Selector != "" {
			if _, ok := m.byName[m.Selector]; !ok {
				return &LoadError{Message: fmt.Sprintf("message %s: selector %q is not a signal", m.Name, m.Selector)}
			}
		}
		s.byID[m.ID] = m
	}
	return nil
}

// fits reports whether every bit of sig lies inside a payload of n bytes.
func fits(sig *Signal, n int) bool {
	ok := true
	walkBits(sig, func(_ int, pos int) {
		if pos < 0 || pos >= n*8 {
			ok = false
		}
	})
	return ok
}

// Message returns the definition of message id.
func (s *Schema) Message(id uint32) (*Message, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// MessageIDs returns all message ids in ascending order.
func (s *Schema) MessageIDs() []uint32 {
	ids := make([]uint32, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Fingerprint returns a BLAKE2b-256 digest of the schema source, used to
// tie a report to the exact schema revision it ran against.
func (s *Schema) Fingerprint() string {
	sum := blake2b.Sum256(s.source)
	return hex.EncodeToString(sum[:])
}

var _ Codec = (*Schema)(nil)
