package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/eol-bench/eol-go/pkg/frame"
)

// WireFrameSize is the size of one transparent gateway frame.
//
//	0     header: 0x80 | DLC, 0x10 remote, 0x20 extended
//	1..4  identifier, big-endian
//	5..12 data, zero padded
const WireFrameSize = 13

const (
	wireValid    = 0x80
	wireRemote   = 0x10
	wireExtended = 0x20
	wireDLCMask  = 0x0F
)

// EncodeWire serializes f into the gateway format.
func EncodeWire(f frame.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, WireFrameSize)
	header := byte(wireValid | len(f.Data)&wireDLCMask)
	if f.Remote {
		header |= wireRemote
	}
	if f.Extended {
		header |= wireExtended
	}
	buf[0] = header
	binary.BigEndian.PutUint32(buf[1:5], f.ID)
	copy(buf[5:], f.Data)
	return buf, nil
}

// DecodeWire parses one gateway frame.
func DecodeWire(raw []byte) (frame.Frame, error) {
	if len(raw) != WireFrameSize {
		return frame.Frame{}, fmt.Errorf("invalid wire frame size %d", len(raw))
	}
	header := raw[0]
	if header&wireValid == 0 {
		return frame.Frame{}, fmt.Errorf("invalid wire frame header 0x%02x", header)
	}
	dlc := int(header & wireDLCMask)
	if dlc > frame.MaxDataLen {
		return frame.Frame{}, fmt.Errorf("%w: dlc %d", frame.ErrInvalidLen, dlc)
	}
	f := frame.Frame{
		ID:       binary.BigEndian.Uint32(raw[1:5]),
		Extended: header&wireExtended != 0,
		Remote:   header&wireRemote != 0,
		Data:     append([]byte(nil), raw[5:5+dlc]...),
	}
	return f, f.Validate()
}
