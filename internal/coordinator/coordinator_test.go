package coordinator

import (
	"net"
	"testing"

	"jungfraurx/internal/frame"
)

type nopSink struct{}

func (nopSink) Deliver(port int, img *frame.Image) {}

func TestNewComputesConsecutivePortsPerInterface(t *testing.T) {
	ifaces := []net.IP{
		net.ParseIP("192.168.1.10"),
		net.ParseIP("192.168.2.10"),
	}
	c := New(ifaces, 30000, nopSink{})

	if c.ListenerCount() != len(ifaces)*ListenersPerInterface {
		t.Fatalf("expected %d listeners, got %d", len(ifaces)*ListenersPerInterface, c.ListenerCount())
	}
	for i, a := range c.assignments {
		want := 30000 + i
		if a.port != want {
			t.Fatalf("assignment %d: expected port %d, got %d", i, want, a.port)
		}
	}
}

func TestNewFailsGracefullyWithNoInterfaces(t *testing.T) {
	c := New(nil, 30000, nopSink{})
	if c.ListenerCount() != 0 {
		t.Fatalf("expected 0 listeners for empty interface list, got %d", c.ListenerCount())
	}
	if err := c.Run(nil); err == nil {
		t.Fatal("expected error when no interfaces are assigned")
	}
}

func TestBarrierSizedToListenerCount(t *testing.T) {
	ifaces := []net.IP{net.ParseIP("192.168.1.10")}
	c := New(ifaces, 30000, nopSink{})
	if c.Barrier().Parties() != ListenersPerInterface {
		t.Fatalf("expected barrier sized to %d, got %d", ListenersPerInterface, c.Barrier().Parties())
	}
}
