// Package profile loads station test profiles from YAML.
//
// A profile names the message schema of the device under test and lists
// the tests to run:
//
//	name: relay-board-eol
//	schema: relay-board.schema.yaml
//	defaults:
//	  dwell_ms: 100
//	  timeout: 10s
//	tests:
//	  - name: relay-k1
//	    kind: digital
//	    feedback_signal: K1State
//	    digital:
//	      message_id: 0x200
//	      signal: RelayK1
//	      value_low: "0"
//	      value_high: "1"
//
// A relative schema path is resolved against the profile's directory.
package profile

import (
	"fmt"
	"time"

	"github.com/eol-bench/eol-go/internal/actuation"
)

// Profile is a loaded test profile.
type Profile struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description,omitempty"`
	Schema      string                  `yaml:"schema,omitempty"`
	Defaults    Defaults                `yaml:"defaults,omitempty"`
	Tests       []*actuation.Descriptor `yaml:"tests"`

	// Path is the file the profile was loaded from. Empty for Parse.
	Path string `yaml:"-"`
}

// Defaults apply to every test that leaves the field unset.
type Defaults struct {
	DwellMS int `yaml:"dwell_ms,omitempty"`

	// Timeout bounds a single test, as a Go duration string.
	Timeout string `yaml:"timeout,omitempty"`
}

// TestTimeout returns the parsed default timeout, or fallback when unset
// or invalid.
func (d Defaults) TestTimeout(fallback time.Duration) time.Duration {
	if d.Timeout == "" {
		return fallback
	}
	t, err := time.ParseDuration(d.Timeout)
	if err != nil || t <= 0 {
		return fallback
	}
	return t
}

// LoadError provides details about a profile loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Test names the offending test, if any.
	Test string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Test != "" {
		msg = fmt.Sprintf("test %q: %s", e.Test, msg)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
