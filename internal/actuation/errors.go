package actuation

import (
	"errors"
	"fmt"
)

// Run preconditions.
var (
	// ErrAdapterNotOpen is returned before any actuation when the bus
	// adapter is not open.
	ErrAdapterNotOpen = errors.New("bus adapter not open")

	// ErrBusy is returned when another run already holds the engine.
	ErrBusy = errors.New("engine busy: another run is active")
)

// ErrorKind tags a failure cause.
type ErrorKind int

const (
	// KindTransport means a frame could not be sent.
	KindTransport ErrorKind = iota
	// KindEncode means a value could not be encoded.
	KindEncode
	// KindTimeout means the expected value was not observed or not held.
	KindTimeout
	// KindConfig means the descriptor is unusable.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEncode:
		return "encode"
	case KindTimeout:
		return "timeout"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is a tagged actuation failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// KindOf returns the kind of err and whether it was tagged.
func KindOf(err error) (ErrorKind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

func configError(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}
