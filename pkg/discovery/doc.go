// Package discovery finds CAN-over-Ethernet gateways on the local network.
//
// Gateways advertise the "_cangw._tcp" service over mDNS with TXT records:
//
//	serial=<serial number>
//	model=<model name>
//	bitrate=<bus bitrate in bit/s>
//
// A station normally has a single gateway; FindFirst returns it. Browse
// aggregates addresses reported on several interfaces into one entry per
// instance.
package discovery
