// Package listener implements the per-port UDP reassembly engine: one
// Listener owns one socket, one buffer pool, and the Idle/Acquiring state
// machine that turns a stream of 8240-byte fragments into complete frames.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"jungfraurx/internal/barrier"
	"jungfraurx/internal/bufpool"
	"jungfraurx/internal/detector"
	"jungfraurx/internal/flog"
	"jungfraurx/internal/frame"
)

// acquisitionTimeout is the silence window that ends an acquisition: once
// the first packet of a run has arrived, no further packet within this
// window means the acquisition is over.
const acquisitionTimeout = 500 * time.Millisecond

// recvBufferBytes is the requested (best-effort) SO_RCVBUF size.
const recvBufferBytes = 512 << 20

type acquisitionState int

const (
	idle acquisitionState = iota
	acquiring
)

// Listener reassembles one UDP port's packet stream into complete frames.
// It is not safe for concurrent use — one goroutine owns one Listener,
// matching the source's one-OS-thread-per-port model.
type Listener struct {
	Port int

	pool       *bufpool.Pool
	sink       Sink
	events     chan<- Event
	acqCounter *atomic.Uint64
	barrier    *barrier.Barrier

	conn *net.UDPConn
}

// New builds a Listener for port, backed by pool for frame buffers,
// delivering completed frames to sink, publishing lifecycle events onto
// events, and sampling acquisition numbers from the shared acqCounter.
// bar is the fleet-wide end-of-acquisition rendezvous point; it may be
// nil, in which case Run never blocks for it (used by tests that drive
// the state machine directly via handlePacket/endAcquisition).
func New(port int, pool *bufpool.Pool, sink Sink, events chan<- Event, acqCounter *atomic.Uint64, bar *barrier.Barrier) *Listener {
	return &Listener{
		Port:       port,
		pool:       pool,
		sink:       sink,
		events:     events,
		acqCounter: acqCounter,
		barrier:    bar,
	}
}

// Run opens the listener's socket and processes packets until ctx is
// canceled or a fatal condition occurs (malformed packet, pool
// exhaustion, socket error other than a read timeout). It never returns
// nil except on context cancellation — process termination is the
// expected way to stop the pipeline.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: l.Port})
	if err != nil {
		return fmt.Errorf("listener port %d: listen: %w", l.Port, err)
	}
	defer conn.Close()
	l.conn = conn

	// Closing the socket on cancellation unblocks an Idle read, which has
	// no deadline.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	setRecvBuffer(conn, recvBufferBytes)
	enableRxqOvfl(conn)

	state := idle
	var scratch [detector.PacketSize]byte
	var cur *frame.Image
	var stats Stats
	var acqNum uint64
	var lastOvfl uint32

	for {
		if ctx.Err() != nil {
			return nil
		}

		if state == idle {
			_ = conn.SetReadDeadline(time.Time{})
		} else {
			_ = conn.SetReadDeadline(time.Now().Add(acquisitionTimeout))
		}

		n, ovfl, err := recvmsgOverflow(conn, scratch[:])
		if err != nil {
			if isTimeout(err) {
				if state == acquiring {
					l.endAcquisition(&state, &cur, &stats, acqNum)
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("listener port %d: recv: %w", l.Port, err)
		}

		h, payload, derr := detector.Decode(scratch[:n])
		if derr != nil {
			return fmt.Errorf("listener port %d: %w", l.Port, derr)
		}

		// SO_RXQ_OVFL carries the socket's running drop total; only the
		// increase since the previous datagram is new loss.
		newDrops := ovfl - lastOvfl
		lastOvfl = ovfl

		if err := l.handlePacket(&state, &cur, &stats, &acqNum, h, payload, newDrops); err != nil {
			return err
		}
	}
}

// handlePacket applies one decoded packet to the reassembly state
// machine: first-packet-of-acquisition, same-frame, new-frame, and
// stale-frame transitions. It contains no socket I/O so it can be driven
// directly in tests. ovfl is the number of kernel-reported SO_RXQ_OVFL
// drops that are new since the previous datagram, if any; it is applied to
// stats after any idle-entry Reset() so a nonzero count on the very
// first packet of a new acquisition is never zeroed out from under it.
func (l *Listener) handlePacket(state *acquisitionState, cur **frame.Image, stats *Stats, acqNum *uint64, h detector.Header, payload []byte, ovfl uint32) error {
	if *state == idle {
		*acqNum = l.acqCounter.Add(1)
		stats.Reset()
		if ovfl > 0 {
			stats.addDropped(uint64(ovfl))
		}
		l.publish(Starting{Port: l.Port, AcquisitionNumber: *acqNum})
		buf, perr := l.pool.Take()
		if perr != nil {
			return fmt.Errorf("listener port %d: %w", l.Port, perr)
		}
		*cur = frame.New(h, payload, buf)
		stats.ImagesSeen++
		*state = acquiring
		return nil
	}

	if ovfl > 0 {
		stats.addDropped(uint64(ovfl))
	}

	if *cur == nil {
		buf, perr := l.pool.Take()
		if perr != nil {
			return fmt.Errorf("listener port %d: %w", l.Port, perr)
		}
		*cur = frame.New(h, payload, buf)
		stats.ImagesSeen++
		return nil
	}

	img := *cur
	switch {
	case h.FrameNumber == img.FrameNumber:
		img.Store(h, payload)
		if img.Complete() {
			l.sink.Deliver(l.Port, img)
			l.publish(ImageReceived{Port: l.Port, FrameNumber: img.FrameNumber, Complete: true})
			stats.CompleteImages++
			l.pool.Put(img.Data)
			*cur = nil
		}

	case h.FrameNumber > img.FrameNumber:
		missing := img.Missing()
		stats.addDropped(uint64(missing))
		l.publish(ImageReceived{Port: l.Port, FrameNumber: img.FrameNumber, DroppedPackets: missing, Complete: false})
		stats.ImagesSeen++
		l.pool.Put(img.Data)

		buf, perr := l.pool.Take()
		if perr != nil {
			return fmt.Errorf("listener port %d: %w", l.Port, perr)
		}
		*cur = frame.New(h, payload, buf)

	default: // stale: h.FrameNumber < img.FrameNumber
		stats.OutOfOrder++
		stats.compensateStaleDrop()
	}
	return nil
}

// endAcquisition closes out whatever frame is in flight (its buffer is
// returned to the pool but not attributed to packets_dropped: the
// acquisition silently stopped, it wasn't superseded by a new frame),
// emits Ended, resets stats, and returns the state machine to Idle.
func (l *Listener) endAcquisition(state *acquisitionState, cur **frame.Image, stats *Stats, acqNum uint64) {
	if *cur != nil {
		l.pool.Put((*cur).Data)
		*cur = nil
	}
	l.publish(Ended{Port: l.Port, AcquisitionNumber: acqNum, Stats: *stats})
	finalStats := *stats
	stats.Reset()
	*state = idle

	if l.barrier != nil {
		if l.barrier.Wait() {
			flog.Infof("listener port %d: acquisition %d ended, images_seen=%d complete=%d dropped=%d out_of_order=%d",
				l.Port, acqNum, finalStats.ImagesSeen, finalStats.CompleteImages, finalStats.PacketsDropped, finalStats.OutOfOrder)
		}
	}
}

// publish sends an event to the coordinator's channel, logging and
// dropping it rather than blocking if the channel is full — the same
// backpressure policy the logger uses.
func (l *Listener) publish(e Event) {
	select {
	case l.events <- e:
	default:
		flog.Warnf("listener port %d: event channel full, dropping %T", l.Port, e)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
