package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encode builds the payload of message id from fields. Signals not named in
// fields are left zero. The payload has the message's declared length.
func (s *Schema) Encode(id uint32, fields map[string]any) ([]byte, error) {
	m, ok := s.byID[id]
	if !ok {
		return nil, &EncodeError{MessageID: id, Err: ErrUnknownMessage}
	}

	buf := make([]byte, m.Length)
	for name, v := range fields {
		sig, ok := m.byName[name]
		if !ok {
			return nil, &EncodeError{MessageID: id, Signal: name, Err: ErrUnknownSignal}
		}
		raw, err := toRaw(sig, v)
		if err != nil {
			return nil, &EncodeError{MessageID: id, Signal: name, Err: err}
		}
		packRaw(buf, sig, raw)
	}
	return buf, nil
}

// Decode extracts every signal of message id present in data. Multiplexed
// signals are only returned when the selector carries their mux value.
func (s *Schema) Decode(id uint32, data []byte) (map[string]any, error) {
	m, ok := s.byID[id]
	if !ok {
		return nil, &DecodeError{MessageID: id, Err: ErrUnknownMessage}
	}
	if len(data) < m.Length {
		return nil, &DecodeError{MessageID: id, Short: true, Want: m.Length, Got: len(data)}
	}

	selector := -1
	if sel, ok := m.SelectorSignal(); ok {
		selector = int(unpackRaw(data, sel))
	}

	out := make(map[string]any, len(m.Signals))
	for i := range m.Signals {
		sig := &m.Signals[i]
		if sig.Mux != nil && *sig.Mux != selector {
			continue
		}
		out[sig.Name] = physical(sig, unpackRaw(data, sig))
	}
	return out, nil
}

// DecodeTolerant decodes data, zero-padding a short payload to the declared
// message length and retrying once. Transmitters commonly trim trailing
// zero bytes.
func DecodeTolerant(c Codec, id uint32, data []byte) (map[string]any, error) {
	fields, err := c.Decode(id, data)
	if err == nil {
		return fields, nil
	}
	var de *DecodeError
	if !errors.As(err, &de) || !de.Short {
		return nil, err
	}
	padded := make([]byte, de.Want)
	copy(padded, data)
	return c.Decode(id, padded)
}

// toRaw converts a physical value into the raw bit pattern of sig.
func toRaw(sig *Signal, v any) (uint64, error) {
	phys, ok := ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, v)
	}
	if sig.Min != nil && phys < *sig.Min {
		return 0, fmt.Errorf("%w: %v < %v", ErrOutOfRange, phys, *sig.Min)
	}
	if sig.Max != nil && phys > *sig.Max {
		return 0, fmt.Errorf("%w: %v > %v", ErrOutOfRange, phys, *sig.Max)
	}

	scaled := math.Round((phys - sig.Offset) / sig.Factor)
	if sig.Signed {
		lo, hi := signedBounds(sig.Length)
		if scaled < lo || scaled > hi {
			return 0, fmt.Errorf("%w: raw %v does not fit %d bits", ErrOutOfRange, scaled, sig.Length)
		}
		mask := uint64(math.MaxUint64)
		if sig.Length < 64 {
			mask = 1<<uint(sig.Length) - 1
		}
		return uint64(int64(scaled)) & mask, nil
	}
	if scaled < 0 || scaled > unsignedMax(sig.Length) {
		return 0, fmt.Errorf("%w: raw %v does not fit %d bits", ErrOutOfRange, scaled, sig.Length)
	}
	return uint64(scaled), nil
}

// physical converts a raw bit pattern into a physical value. Integral
// scaling yields int64, anything else float64.
func physical(sig *Signal, raw uint64) any {
	var r float64
	var ri int64
	if sig.Signed {
		ri = signExtend(raw, sig.Length)
	} else {
		ri = int64(raw)
	}
	if sig.Factor == 1 && sig.Offset == 0 {
		return ri
	}
	r = float64(ri)*sig.Factor + sig.Offset
	if isIntegral(sig.Factor) && isIntegral(sig.Offset) {
		return int64(r)
	}
	return r
}

func signedBounds(n int) (float64, float64) {
	return -math.Ldexp(1, n-1), math.Ldexp(1, n-1) - 1
}

func unsignedMax(n int) float64 {
	return math.Ldexp(1, n) - 1
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f)
}

// ToFloat converts numeric values, booleans and numeric strings (decimal or
// 0x-prefixed hex) to float64. NaN and infinities are not numbers here.
func ToFloat(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			u, err := strconv.ParseUint(s[2:], 16, 64)
			if err != nil {
				return 0, false
			}
			return float64(u), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
