package profile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eol-bench/eol-go/internal/actuation"
	"github.com/eol-bench/eol-go/pkg/codec"
)

// Parse parses a profile from YAML bytes and applies defaults.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if p.Name == "" {
		return nil, &LoadError{Message: "profile name is required"}
	}
	if len(p.Tests) == 0 {
		return nil, &LoadError{Message: "profile must have at least one test"}
	}
	if p.Defaults.DwellMS < 0 {
		return nil, &LoadError{Message: fmt.Sprintf("defaults: dwell_ms must not be negative, got %d", p.Defaults.DwellMS)}
	}

	seen := make(map[string]bool, len(p.Tests))
	for i, d := range p.Tests {
		if d == nil {
			return nil, &LoadError{Message: "empty test entry"}
		}
		if d.Name == "" {
			return nil, &LoadError{Message: fmt.Sprintf("test name is required (entry %d)", i)}
		}
		if seen[d.Name] {
			return nil, &LoadError{Test: d.Name, Message: "duplicate test name"}
		}
		seen[d.Name] = true

		if err := validate(d); err != nil {
			return nil, &LoadError{Test: d.Name, Message: err.Error()}
		}
		p.applyDefaults(d)
	}

	return &p, nil
}

func validate(d *actuation.Descriptor) error {
	switch d.Kind {
	case actuation.Digital:
		if d.Digital == nil {
			return errors.New("digital test needs a digital section")
		}
		if d.Digital.Signal == "" {
			return errors.New("digital signal is required")
		}
		if d.Digital.ValueLow == "" || d.Digital.ValueHigh == "" {
			return errors.New("value_low and value_high are required")
		}
		if d.Digital.DwellMS < 0 {
			return fmt.Errorf("dwell_ms must not be negative, got %d", d.Digital.DwellMS)
		}
	case actuation.Analog:
		if d.Analog == nil {
			return errors.New("analog test needs an analog section")
		}
		a := d.Analog
		if a.CommandSignal == "" {
			return errors.New("command_signal is required")
		}
		if a.StepMV <= 0 {
			return fmt.Errorf("step_mv must be positive, got %d", a.StepMV)
		}
		if a.DwellMS < 0 {
			return fmt.Errorf("dwell_ms must not be negative, got %d", a.DwellMS)
		}
		for _, v := range []int{a.MinMV, a.MaxMV, a.StepMV} {
			if v < math.MinInt32 || v > math.MaxInt32 {
				return fmt.Errorf("min_mv, max_mv and step_mv must fit 32 bits, got %d", v)
			}
		}
	default:
		return fmt.Errorf("kind must be digital or analog, got %q", d.Kind)
	}
	return nil
}

// CheckSchema verifies that every analog ramp stays within the physical
// range of its command signal.
func (p *Profile) CheckSchema(s *codec.Schema) error {
	for _, d := range p.Tests {
		if d.Kind != actuation.Analog || d.Analog == nil {
			continue
		}
		a := d.Analog
		msg, ok := s.Message(a.MessageID)
		if !ok {
			return &LoadError{File: p.Path, Test: d.Name, Message: fmt.Sprintf("message 0x%X not in schema", a.MessageID)}
		}
		sig, ok := msg.Signal(a.CommandSignal)
		if !ok {
			return &LoadError{File: p.Path, Test: d.Name, Message: fmt.Sprintf("signal %s not in message %s", a.CommandSignal, msg.Name)}
		}
		lo, hi := sig.Range()
		if float64(a.MinMV) < lo || float64(a.MaxMV) > hi {
			return &LoadError{File: p.Path, Test: d.Name,
				Message: fmt.Sprintf("ramp %d..%d mV outside %s range %v..%v", a.MinMV, a.MaxMV, sig.Name, lo, hi)}
		}
	}
	return nil
}

func (p *Profile) applyDefaults(d *actuation.Descriptor) {
	if p.Defaults.DwellMS <= 0 {
		return
	}
	if d.Digital != nil && d.Digital.DwellMS == 0 {
		d.Digital.DwellMS = p.Defaults.DwellMS
	}
	if d.Analog != nil && d.Analog.DwellMS == 0 {
		d.Analog.DwellMS = p.Defaults.DwellMS
	}
}

// Load loads a profile from a file and resolves its schema path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	p, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	p.Path = path
	if p.Schema != "" && !filepath.IsAbs(p.Schema) {
		p.Schema = filepath.Join(filepath.Dir(path), p.Schema)
	}
	return p, nil
}

// LoadDirectory loads every profile in dir. Only files with .yaml or .yml
// extensions that are not schemas (*.schema.yaml) are loaded.
func LoadDirectory(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{
			File:    dir,
			Message: "failed to read directory",
			Cause:   err,
		}
	}

	var profiles []*Profile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isProfileFile(name) {
			continue
		}
		p, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func isProfileFile(name string) bool {
	lower := strings.ToLower(name)
	ext := filepath.Ext(lower)
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return !strings.HasSuffix(strings.TrimSuffix(lower, ext), ".schema")
}

// Filter returns the tests whose name matches any of the comma-separated
// glob patterns. An empty pattern matches everything.
func Filter(tests []*actuation.Descriptor, pattern string) []*actuation.Descriptor {
	var patterns []string
	for _, p := range strings.Split(pattern, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return tests
	}

	var out []*actuation.Descriptor
	for _, d := range tests {
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, d.Name); ok {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
