// Package frame defines the classical CAN frame exchanged with the bus.
package frame

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Identifier and payload limits for classical CAN (2.0A/2.0B).
const (
	MaxStdID   = 0x7FF
	MaxExtID   = 0x1FFFFFFF
	MaxDataLen = 8

	// BinarySize is the size of the SocketCAN can_frame layout.
	BinarySize = 16
)

const (
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
)

// Frame errors.
var (
	ErrInvalidID  = errors.New("frame: invalid identifier")
	ErrInvalidLen = errors.New("frame: invalid data length")
)

// Frame is an atomic bus message: an identifier and up to 8 payload bytes.
type Frame struct {
	// ID is the 11-bit or 29-bit identifier.
	ID uint32

	// Extended marks a 29-bit identifier.
	Extended bool

	// Remote marks a remote transmission request.
	Remote bool

	// Data is the payload (0..8 bytes).
	Data []byte

	// Timestamp is when the frame was received. Zero for outgoing frames.
	Timestamp time.Time
}

// New builds a frame for id and data. Identifiers above the standard range
// are marked extended. The data slice is copied.
func New(id uint32, data []byte) (Frame, error) {
	f := Frame{
		ID:       id,
		Extended: id > MaxStdID,
		Data:     append([]byte(nil), data...),
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate reports whether the identifier and payload fit classical CAN.
func (f Frame) Validate() error {
	if len(f.Data) > MaxDataLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidLen, len(f.Data))
	}
	limit := uint32(MaxStdID)
	if f.Extended {
		limit = MaxExtID
	}
	if f.ID > limit {
		return fmt.Errorf("%w: 0x%X", ErrInvalidID, f.ID)
	}
	return nil
}

// Len returns the payload length.
func (f Frame) Len() int {
	return len(f.Data)
}

// String renders the frame in candump notation, e.g. "123#DEADBEEF".
func (f Frame) String() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X", f.ID)
	}
	b.WriteByte('#')
	if f.Remote {
		b.WriteByte('R')
		return b.String()
	}
	b.WriteString(strings.ToUpper(hex.EncodeToString(f.Data)))
	return b.String()
}

// MarshalBinary encodes the frame in the Linux SocketCAN can_frame layout.
//
//	0..3  can_id (little-endian, EFF/RTR flags)
//	4     can_dlc
//	5..7  padding
//	8..15 data
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.Remote {
		id |= canRtrFlag
	}
	buf := make([]byte, BinarySize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = uint8(len(f.Data))
	copy(buf[8:], f.Data)
	return buf, nil
}

// UnmarshalBinary decodes a frame from the SocketCAN can_frame layout.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < BinarySize {
		return fmt.Errorf("frame: need %d bytes, got %d", BinarySize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&canEffFlag != 0
	f.Remote = id&canRtrFlag != 0
	if f.Extended {
		f.ID = id & MaxExtID
	} else {
		f.ID = id & MaxStdID
	}
	dlc := int(data[4])
	if dlc > MaxDataLen {
		return fmt.Errorf("%w: dlc %d", ErrInvalidLen, dlc)
	}
	f.Data = append([]byte(nil), data[8:8+dlc]...)
	return f.Validate()
}
