package discovery

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the mDNS service type of CAN gateways.
	ServiceType = "_cangw._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default timeout for FindFirst.
	BrowseTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeySerial  = "serial"
	TXTKeyModel   = "model"
	TXTKeyBitrate = "bitrate"

	// TXTKeyProtocol carries the wire protocol revision ("major.minor").
	TXTKeyProtocol = "pv"
)

// ErrNotFound is returned when no gateway answered before the timeout.
var ErrNotFound = errors.New("no CAN gateway found")

// Service describes a discovered gateway.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Serial       string
	Model        string
	Bitrate      int

	// Protocol is the advertised wire protocol revision, if any.
	Protocol string
}

// Address returns host:port for the first known address, falling back to
// the advertised host name.
func (s *Service) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	host = strings.TrimSuffix(host, ".")
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// parseTXT splits "key=value" records into a map. Records without "=" are
// treated as boolean flags with an empty value.
func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k != "" {
			out[k] = v
		}
	}
	return out
}

// mergeAddresses adds new addresses to existing, skipping duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops every address in gone from addresses.
func removeAddresses(addresses, gone []string) []string {
	drop := make(map[string]bool, len(gone))
	for _, a := range gone {
		drop[a] = true
	}
	out := addresses[:0]
	for _, a := range addresses {
		if !drop[a] {
			out = append(out, a)
		}
	}
	return out
}
