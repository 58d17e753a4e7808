package actuation

import (
	"encoding/hex"
	"maps"
	"strconv"
	"strings"

	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/frame"
)

// payload builds the frame payload for fields on message id. The codec is
// tried first, with a resolved selector added for multiplexed messages.
// Without a usable encoding a single field falls back to raw bytes, and
// anything else yields an empty payload.
func (e *Engine) payload(id uint32, fields map[string]any, hint string) []byte {
	if e.codec != nil {
		if msg, ok := e.codec.Message(id); ok {
			enc := e.withSelector(msg, fields, hint)
			data, err := e.codec.Encode(id, enc)
			if err == nil && len(data) <= frame.MaxDataLen {
				return data
			}
			e.config.Logger.Debug("encode failed, using raw fallback",
				"message", msg.Name, "fields", fields, "error", err)
		}
	}

	if len(fields) == 1 {
		for _, v := range fields {
			return rawBytes(v)
		}
	}
	return nil
}

// withSelector returns fields plus the selector signal when the message is
// multiplexed and the caller did not set it.
func (e *Engine) withSelector(msg *codec.Message, fields map[string]any, hint string) map[string]any {
	sel, ok := msg.SelectorSignal()
	if !ok {
		return fields
	}
	if _, set := fields[sel.Name]; set {
		return fields
	}
	value, ok := e.config.Resolver.ResolveSelector(msg, fields, hint)
	if !ok {
		return fields
	}
	out := maps.Clone(fields)
	out[sel.Name] = value
	return out
}

// rawBytes encodes v without a schema. Strings with a 0x prefix are hex
// bytes; integers become one byte masked to 0xFF. Returns nil when neither
// applies or the result would not fit a frame.
func rawBytes(v any) []byte {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if digits, ok := cutHexPrefix(s); ok {
			if len(digits)%2 == 1 {
				digits = "0" + digits
			}
			b, err := hex.DecodeString(digits)
			if err != nil || len(b) > frame.MaxDataLen {
				return nil
			}
			return b
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		return []byte{byte(n & 0xFF)}
	}

	f, ok := codec.ToFloat(v)
	if !ok {
		return nil
	}
	return []byte{byte(int64(f) & 0xFF)}
}

func cutHexPrefix(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return "", false
}

// parseExpected turns a raw descriptor value into the value compared
// against feedback: an integer when it parses as one (decimal or 0x hex),
// then a float, else the trimmed string.
func parseExpected(raw string) any {
	s := strings.TrimSpace(raw)
	if digits, ok := cutHexPrefix(s); ok {
		if n, err := strconv.ParseInt(digits, 16, 64); err == nil {
			return n
		}
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
