package actuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eol-bench/eol-go/pkg/codec"
)

const unscopedSchema = `
messages:
  - id: 0x210
    name: BoardCommand
    length: 4
    selector: Mode
    signals:
      - {name: Mode, start_bit: 0, length: 8, choices: {1: VOLTAGE_CMD, 2: RELAY_CMD, 3: OFF}}
      - {name: Voltage_mV, start_bit: 8, length: 16}
      - {name: Relay_K2, start_bit: 24, length: 1}
`

func message(t *testing.T, yaml string, id uint32) *codec.Message {
	t.Helper()
	s, err := codec.ParseSchema([]byte(yaml))
	require.NoError(t, err)
	m, ok := s.Message(id)
	require.True(t, ok)
	return m
}

func TestScopedSelector(t *testing.T) {
	m := message(t, relaySchema, 0x200)
	r := ScopedSelector{}

	v, ok := r.ResolveSelector(m, map[string]any{"Voltage_mV": 5}, "")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.ResolveSelector(m, map[string]any{"Unknown": 5}, "relay_cmd")
	require.True(t, ok)
	assert.Equal(t, 2, v, "label matched case-insensitively")

	v, ok = r.ResolveSelector(m, map[string]any{"Unknown": 5}, "0x07")
	require.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = r.ResolveSelector(m, map[string]any{"Unknown": 5}, "")
	assert.False(t, ok)
}

func TestHeuristicSelector(t *testing.T) {
	m := message(t, unscopedSchema, 0x210)
	r := HeuristicSelector{}

	v, ok := r.ResolveSelector(m, map[string]any{"Voltage_mV": 100}, "")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.ResolveSelector(m, map[string]any{"Relay_K2": 1}, "")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = r.ResolveSelector(m, map[string]any{"Fan": 1}, "")
	assert.False(t, ok)
}

func TestChainSelectorOrder(t *testing.T) {
	m := message(t, unscopedSchema, 0x210)

	v, ok := DefaultSelector().ResolveSelector(m, map[string]any{"Voltage_mV": 100}, "relay_cmd")
	require.True(t, ok)
	assert.Equal(t, 2, v, "descriptor hint beats name heuristic")

	v, ok = DefaultSelector().ResolveSelector(m, map[string]any{"Voltage_mV": 100}, "")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestPayloadOmitsUnresolvedSelector(t *testing.T) {
	b := newBench(t, WithSelectorResolver(ScopedSelector{}))
	s, err := codec.ParseSchema([]byte(unscopedSchema))
	require.NoError(t, err)
	b.engine.codec = s

	data := b.engine.payload(0x210, map[string]any{"Voltage_mV": 0x1234}, "")
	assert.Equal(t, []byte{0x00, 0x34, 0x12, 0x00}, data)
}

func TestPayloadEncodeFailureFallsBack(t *testing.T) {
	b := newBench(t)

	// Out of range for a 1-bit signal: single field falls back to one byte.
	assert.Equal(t, []byte{0x05}, b.engine.payload(0x200, map[string]any{"RelayK1": 5}, ""))

	// Several fields cannot fall back.
	assert.Empty(t, b.engine.payload(0x200, map[string]any{"RelayK1": 5, "Nope": 1}, ""))
}

func TestParseExpected(t *testing.T) {
	assert.Equal(t, int64(1), parseExpected("1"))
	assert.Equal(t, int64(10), parseExpected("010"))
	assert.Equal(t, int64(255), parseExpected("0xFF"))
	assert.Equal(t, 2.5, parseExpected(" 2.5 "))
	assert.Equal(t, "ON", parseExpected("ON"))
}
