// Package version identifies the revision of the gateway wire protocol.
//
// Gateways advertise their revision as "major.minor" in the discovery TXT
// record. A station talks to any gateway with the same major revision.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the wire protocol revision implemented by this module: the
// 13-byte frame record with flags, identifier and payload.
const Current = "1.0"

// ErrIncompatible is returned by Check for a different major revision.
var ErrIncompatible = errors.New("incompatible wire protocol")

// Wire is a parsed "major.minor" protocol revision.
type Wire struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" revision string.
func Parse(s string) (Wire, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return Wire{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	ma, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return Wire{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	mi, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return Wire{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}
	return Wire{Major: uint16(ma), Minor: uint16(mi)}, nil
}

// String returns the revision as "major.minor".
func (v Wire) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether other shares the major revision.
func (v Wire) Compatible(other Wire) bool {
	return v.Major == other.Major
}

// Check reports whether an advertised revision can be used with Current.
// An empty string means the gateway did not advertise one and is accepted.
func Check(advertised string) error {
	if advertised == "" {
		return nil
	}
	remote, err := Parse(advertised)
	if err != nil {
		return err
	}
	local, _ := Parse(Current)
	if !local.Compatible(remote) {
		return fmt.Errorf("%w: gateway %s, station %s", ErrIncompatible, remote, local)
	}
	return nil
}
