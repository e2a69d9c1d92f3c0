package deluge

import (
	"net"
	"testing"
	"time"

	"jungfraurx/internal/detector"
)

func TestResolveToFirstSaturates(t *testing.T) {
	cases := []struct {
		total, toFirst int
		hasSecondary   bool
		want           int
	}{
		{total: 8, toFirst: 4, hasSecondary: true, want: 4},
		{total: 8, toFirst: 100, hasSecondary: true, want: 8},
		{total: 8, toFirst: 9, hasSecondary: false, want: 8},
		{total: 8, toFirst: -1, hasSecondary: true, want: 0},
	}
	for _, c := range cases {
		got := resolveToFirst(c.total, c.toFirst, c.hasSecondary)
		if got != c.want {
			t.Fatalf("resolveToFirst(%d,%d,%v) = %d, want %d", c.total, c.toFirst, c.hasSecondary, got, c.want)
		}
	}
}

func TestNewAssignsConsecutivePortsAndSplitsTargets(t *testing.T) {
	ifaces := []net.IP{net.ParseIP("127.0.0.1")}
	primary := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}
	secondary := &net.UDPAddr{IP: net.ParseIP("127.0.0.2"), Port: 40000}

	d, err := New(ifaces, 30000, primary, secondary, 2, 9999)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		for _, s := range d.senders {
			s.Close()
		}
	}()

	if d.SenderCount() != SendersPerInterface {
		t.Fatalf("expected %d senders, got %d", SendersPerInterface, d.SenderCount())
	}
	for i, slot := range d.slots {
		wantPort := 30000 + i
		if slot.port != wantPort {
			t.Fatalf("slot %d: expected port %d, got %d", i, wantPort, slot.port)
		}
		wantIP := primary.IP
		if i >= 2 {
			wantIP = secondary.IP
		}
		if !slot.target.IP.Equal(wantIP) {
			t.Fatalf("slot %d: expected target %v, got %v", i, wantIP, slot.target.IP)
		}
	}
}

// Property 7 (Deluge pacing): elapsed time between the first and last
// frame transmissions is >= (F-1)*E, with generous jitter tolerance.
func TestBurstPacing(t *testing.T) {
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer serverConn.Close()

	target := serverConn.LocalAddr().(*net.UDPAddr)
	sender, err := NewSender(net.ParseIP("127.0.0.1"), target)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	const frames = 5
	const exptime = float32(0.01)
	start := time.Now()
	if err := sender.Burst(start, frames, exptime, 0); err != nil {
		t.Fatalf("Burst: %v", err)
	}
	elapsed := time.Since(start)

	minExpected := time.Duration(float64(frames-1) * float64(exptime) * float64(time.Second))
	if elapsed < minExpected {
		t.Fatalf("expected elapsed >= %s, got %s", minExpected, elapsed)
	}
}

// Verifies the wire packets a burst actually produces: 64 packets per
// frame, packet_number 0..63, frame_number advancing by one per frame.
func TestBurstWireContents(t *testing.T) {
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer serverConn.Close()
	_ = serverConn.SetReadDeadline(time.Now().Add(5 * time.Second))

	target := serverConn.LocalAddr().(*net.UDPAddr)
	sender, err := NewSender(net.ParseIP("127.0.0.1"), target)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	const frames = 2
	done := make(chan error, 1)
	go func() { done <- sender.Burst(time.Now(), frames, 0, 100) }()

	buf := make([]byte, detector.PacketSize)
	for f := uint64(0); f < frames; f++ {
		for pn := uint32(0); pn < detector.PacketsPerFrame; pn++ {
			n, _, err := serverConn.ReadFromUDP(buf)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			h, _, derr := detector.Decode(buf[:n])
			if derr != nil {
				t.Fatalf("decode: %v", derr)
			}
			if h.FrameNumber != 100+f || h.PacketNumber != pn {
				t.Fatalf("packet (frame %d, pn %d): got header %+v", f, pn, h)
			}
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("Burst returned error: %v", err)
	}
}
