package deluge

import (
	"context"
	"net"
	"time"

	"golang.org/x/time/rate"

	"jungfraurx/internal/detector"
)

// packetRateLimit bounds the sustained rate at which a single sender
// writes packets to the wire, independent of the per-image exposure
// pacing. A full 64-packet frame can always go out in one burst; it's
// only back-to-back frames faster than the limit (e.g. a zero/near-zero
// exptime trigger) that get smoothed, so a misconfigured trigger can't
// instantaneously saturate the local NIC.
const packetRateLimit = 200_000

// Sender owns one outbound UDP socket bound to a local interface and
// connected (connectionless-style) to one destination. It emits the
// replayed packet stream for one (interface, port) pairing.
type Sender struct {
	Interface net.IP
	Target    *net.UDPAddr

	conn    *net.UDPConn
	limiter *rate.Limiter
}

// NewSender binds an ephemeral local port on iface and connects to
// target. Go's "connected" UDP socket gives the same effective semantics
// as an unconnected bind-and-sendto pair, via Write instead of WriteTo.
func NewSender(iface net.IP, target *net.UDPAddr) (*Sender, error) {
	local := &net.UDPAddr{IP: iface, Port: 0}
	conn, err := net.DialUDP("udp4", local, target)
	if err != nil {
		return nil, err
	}
	limiter := rate.NewLimiter(rate.Limit(packetRateLimit), detector.PacketsPerFrame)
	return &Sender{Interface: iface, Target: target, conn: conn, limiter: limiter}, nil
}

// Close releases the sender's socket.
func (s *Sender) Close() error { return s.conn.Close() }

// Burst transmits frames images starting at startFrameNumber, each paced
// so image i's first packet goes out at start+i*exptime. The header is
// zero except frame_number/packet_number: the replay is structural, not
// content-faithful.
func (s *Sender) Burst(start time.Time, frames uint64, exptime float32, startFrameNumber uint64) error {
	var buf [detector.PacketSize]byte
	pace := time.Duration(float64(exptime) * float64(time.Second))

	for img := uint64(0); img < frames; img++ {
		sleepUntil(start.Add(time.Duration(img) * pace))

		frameNumber := startFrameNumber + img
		for pn := uint32(0); pn < detector.PacketsPerFrame; pn++ {
			if err := s.limiter.Wait(context.Background()); err != nil {
				return err
			}
			h := detector.Header{FrameNumber: frameNumber, PacketNumber: pn}
			h.Encode(buf[:detector.HeaderSize])
			if _, err := s.conn.Write(buf[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleepUntil(t time.Time) {
	if d := time.Until(t); d > 0 {
		time.Sleep(d)
	}
}
