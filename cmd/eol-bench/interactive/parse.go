package interactive

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/eol-bench/eol-go/pkg/frame"
)

// ParseID parses a frame identifier in hex (0x-prefixed) or decimal.
func ParseID(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil || v > frame.MaxExtID {
		return 0, fmt.Errorf("invalid frame id %q", s)
	}
	return uint32(v), nil
}

// ParseValue converts a command-line token into an int64, float64 or,
// failing both, the string itself.
func ParseValue(s string) any {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if v, err := strconv.ParseInt(s[2:], 16, 64); err == nil {
			return v
		}
		return s
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// ParseAssignments parses "signal=value" tokens into a field map.
func ParseAssignments(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("expected signal=value, got %q", a)
		}
		fields[name] = ParseValue(value)
	}
	return fields, nil
}

// ParsePayload parses hex bytes, optionally separated by spaces or dots,
// e.g. "0102ff" or "01.02.ff".
func ParsePayload(args []string) ([]byte, error) {
	s := strings.NewReplacer(".", "", ":", "").Replace(strings.Join(args, ""))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	if len(data) > frame.MaxDataLen {
		return nil, fmt.Errorf("payload has %d bytes, at most %d allowed", len(data), frame.MaxDataLen)
	}
	return data, nil
}
