package actuation

import (
	"strconv"
	"strings"

	"github.com/eol-bench/eol-go/pkg/codec"
)

// SelectorResolver picks the selector value to send with fields on a
// multiplexed message. hint is the descriptor's Selector (may be empty).
type SelectorResolver interface {
	ResolveSelector(msg *codec.Message, fields map[string]any, hint string) (int, bool)
}

// ScopedSelector resolves from the schema and the descriptor: a field that
// is scoped to a selector value wins, then the descriptor hint, given as a
// selector label or a number.
type ScopedSelector struct{}

func (ScopedSelector) ResolveSelector(msg *codec.Message, fields map[string]any, hint string) (int, bool) {
	for name := range fields {
		if sig, ok := msg.Signal(name); ok && sig.Mux != nil {
			return *sig.Mux, true
		}
	}

	hint = strings.TrimSpace(hint)
	if hint == "" {
		return 0, false
	}
	for value, label := range msg.SelectorChoices() {
		if strings.EqualFold(label, hint) {
			return value, true
		}
	}
	if n, err := strconv.ParseInt(hint, 0, 64); err == nil {
		return int(n), true
	}
	return 0, false
}

// HeuristicSelector matches signal names against selector labels, e.g. a
// field "Voltage_mV" selects the label "VOLTAGE_CMD". It exists for
// schemas whose signals carry no mux scope and should come last in a
// chain.
type HeuristicSelector struct{}

func (HeuristicSelector) ResolveSelector(msg *codec.Message, fields map[string]any, _ string) (int, bool) {
	choices := msg.SelectorChoices()
	if len(choices) == 0 {
		return 0, false
	}

	best, found := 0, false
	for name := range fields {
		lname := strings.ToLower(name)
		for value, label := range choices {
			h := labelHint(label)
			if h == "" || !strings.Contains(lname, h) {
				continue
			}
			// Map iteration is random; keep the lowest value for stable output.
			if !found || value < best {
				best, found = value, true
			}
		}
	}
	return best, found
}

// labelHint strips command suffixes from a selector label.
func labelHint(label string) string {
	h := strings.ToLower(label)
	for _, suffix := range []string{"_command", "_cmd", "command", "cmd"} {
		h = strings.TrimSuffix(h, suffix)
	}
	return strings.Trim(h, "_ ")
}

// ChainSelector tries each resolver in order.
type ChainSelector []SelectorResolver

func (c ChainSelector) ResolveSelector(msg *codec.Message, fields map[string]any, hint string) (int, bool) {
	for _, r := range c {
		if v, ok := r.ResolveSelector(msg, fields, hint); ok {
			return v, true
		}
	}
	return 0, false
}

// DefaultSelector is the resolver used when none is configured.
func DefaultSelector() SelectorResolver {
	return ChainSelector{ScopedSelector{}, HeuristicSelector{}}
}
