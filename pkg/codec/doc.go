// Package codec encodes and decodes CAN payloads against a message schema.
//
// A schema is a YAML description of messages and their signals, close to
// what a DBC file carries: start bit, length, byte order, scaling, range,
// and optional multiplexing. A message may declare one selector signal; any
// signal with a mux value is only present when the selector carries that
// value.
//
//	name: relay-board
//	messages:
//	  - id: 0x200
//	    name: RelayCommand
//	    length: 8
//	    selector: CmdType
//	    signals:
//	      - {name: CmdType, start_bit: 0, length: 8, choices: {1: VOLTAGE_CMD, 2: RELAY_CMD}}
//	      - {name: Voltage_mV, start_bit: 8, length: 16, mux: 1}
//	      - {name: RelayK1, start_bit: 8, length: 1, mux: 2}
//
// The Schema type implements Codec.
package codec
