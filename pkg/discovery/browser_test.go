package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(instance string, addrs ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instance,
			Service:  ServiceType,
			Domain:   Domain,
		},
		HostName: "gw-01.local.",
		Port:     20001,
		Text:     []string{"serial=GW1234", "model=ECAN-E01", "bitrate=500000", "flag"},
	}
	for _, a := range addrs {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(a))
	}
	return e
}

func TestEntryToService(t *testing.T) {
	svc := entryToService(testEntry("gw-01", "192.168.1.50"))

	assert.Equal(t, "gw-01", svc.InstanceName)
	assert.Equal(t, uint16(20001), svc.Port)
	assert.Equal(t, "GW1234", svc.Serial)
	assert.Equal(t, "ECAN-E01", svc.Model)
	assert.Equal(t, 500000, svc.Bitrate)
	assert.Equal(t, "192.168.1.50:20001", svc.Address())
}

func TestServiceAddressFallsBackToHost(t *testing.T) {
	svc := &Service{Host: "gw-01.local.", Port: 20001}
	assert.Equal(t, "gw-01.local:20001", svc.Address())
}

func TestAggregateMergesInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Service, 4)

	go aggregate(ctx, entries, removed, out)

	entries <- testEntry("gw-01", "192.168.1.50")
	first := <-out
	entries <- testEntry("gw-01", "10.0.0.5")
	entries <- testEntry("gw-02", "192.168.1.51")
	second := <-out

	assert.Equal(t, "gw-02", second.InstanceName)

	// Same pointer is updated in place with the second interface's address.
	close(entries)
	require.Eventually(t, func() bool {
		_, open := <-out
		return !open
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"192.168.1.50", "10.0.0.5"}, first.Addresses)
}

func TestRemoveAddresses(t *testing.T) {
	got := removeAddresses([]string{"a", "b", "c"}, []string{"b"})
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestParseTXT(t *testing.T) {
	txt := parseTXT([]string{"serial=1", "flag", "=x", "model=a=b"})
	assert.Equal(t, map[string]string{"serial": "1", "flag": "", "model": "a=b"}, txt)
}

func TestEntryToServiceProtocol(t *testing.T) {
	e := testEntry("gw-01", "192.168.1.50")
	e.Text = append(e.Text, "pv=1.2")
	assert.Equal(t, "1.2", entryToService(e).Protocol)
}

func TestFirstCompatibleSkipsOtherMajor(t *testing.T) {
	services := make(chan *Service, 3)
	services <- &Service{InstanceName: "gw-new", Protocol: "2.0"}
	services <- &Service{InstanceName: "gw-bad", Protocol: "x"}
	services <- &Service{InstanceName: "gw-ok", Protocol: "1.1"}

	svc, err := firstCompatible(context.Background(), services)
	require.NoError(t, err)
	assert.Equal(t, "gw-ok", svc.InstanceName)
}

func TestFirstCompatibleNotFound(t *testing.T) {
	services := make(chan *Service, 1)
	services <- &Service{InstanceName: "gw-new", Protocol: "2.0"}
	close(services)

	_, err := firstCompatible(context.Background(), services)
	assert.ErrorIs(t, err, ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = firstCompatible(ctx, make(chan *Service))
	assert.ErrorIs(t, err, ErrNotFound)
}
