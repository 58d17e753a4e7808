package station

import (
	"github.com/eol-bench/eol-go/internal/actuation"
	"github.com/eol-bench/eol-go/pkg/bus"
	"github.com/eol-bench/eol-go/pkg/codec"
	"github.com/eol-bench/eol-go/pkg/frame"
)

// simulateDevice answers digital commands the way a healthy device would:
// the commanded value shows up on the test's feedback signal. Returns nil
// without a schema, since raw frames cannot be interpreted.
func simulateDevice(schema *codec.Schema, tests []*actuation.Descriptor) bus.Responder {
	if schema == nil {
		return nil
	}

	type mirror struct {
		signal   string
		feedback string
		target   uint32
	}
	byID := make(map[uint32][]mirror)
	for _, d := range tests {
		if d.Kind != actuation.Digital || d.Digital == nil || d.FeedbackSignal == "" {
			continue
		}
		target, ok := feedbackMessage(schema, d)
		if !ok {
			continue
		}
		byID[d.Digital.MessageID] = append(byID[d.Digital.MessageID], mirror{
			signal:   d.Digital.Signal,
			feedback: d.FeedbackSignal,
			target:   target,
		})
	}

	return func(sent frame.Frame) []frame.Frame {
		mirrors := byID[sent.ID]
		if len(mirrors) == 0 {
			return nil
		}
		fields, err := codec.DecodeTolerant(schema, sent.ID, sent.Data)
		if err != nil {
			return nil
		}

		var replies []frame.Frame
		for _, m := range mirrors {
			v, ok := fields[m.signal]
			if !ok {
				continue
			}
			reply := map[string]any{m.feedback: v}
			if msg, ok := schema.Message(m.target); ok {
				if sig, ok := msg.Signal(m.feedback); ok && sig.Mux != nil && msg.Selector != "" {
					reply[msg.Selector] = *sig.Mux
				}
			}
			data, err := schema.Encode(m.target, reply)
			if err != nil {
				continue
			}
			if f, err := frame.New(m.target, data); err == nil {
				replies = append(replies, f)
			}
		}
		return replies
	}
}

// feedbackMessage returns the message carrying the test's feedback signal.
func feedbackMessage(schema *codec.Schema, d *actuation.Descriptor) (uint32, bool) {
	if d.FeedbackMessageID != nil {
		return *d.FeedbackMessageID, true
	}
	for _, id := range schema.MessageIDs() {
		msg, _ := schema.Message(id)
		if _, ok := msg.Signal(d.FeedbackSignal); ok {
			return id, true
		}
	}
	return 0, false
}
