package deluge

import (
	"context"
	"fmt"
	"net"
	"time"

	"jungfraurx/internal/barrier"
	"jungfraurx/internal/flog"
)

// SendersPerInterface is the number of module streams emitted per NIC on
// the sender side — 4 by convention, differing from the receiver's 9.
const SendersPerInterface = 4

// DebounceWindow is the minimum spacing between accepted triggers; a
// retrigger within this window of the last accepted one is silently
// dropped.
const DebounceWindow = 500 * time.Millisecond

// senderSlot binds one Sender's destination port and target selection.
type senderSlot struct {
	port   int
	target *net.UDPAddr
}

// Deluge is the standalone replay-generator process: one trigger socket
// fanning a paced burst out across SendersPerInterface senders per
// interface.
type Deluge struct {
	TriggerPort int

	slots   []senderSlot
	senders []*Sender

	lastAccepted   time.Time
	lastAcceptedOK bool
}

// New computes the sender fan-out for ifaces: SendersPerInterface senders
// per interface, consecutive destination ports from basePort, the first
// toFirst senders routed to primary and the rest to secondary (nil
// secondary routes everything to primary regardless of toFirst). toFirst
// saturates at the total sender count.
func New(ifaces []net.IP, basePort int, primary, secondary *net.UDPAddr, toFirst int, triggerPort int) (*Deluge, error) {
	total := len(ifaces) * SendersPerInterface
	toFirst = resolveToFirst(total, toFirst, secondary != nil)

	d := &Deluge{TriggerPort: triggerPort}

	port := basePort
	idx := 0
	for _, iface := range ifaces {
		for j := 0; j < SendersPerInterface; j++ {
			target := primary
			if idx >= toFirst {
				target = secondary
			}
			d.slots = append(d.slots, senderSlot{port: port, target: &net.UDPAddr{IP: target.IP, Port: port}})

			sender, err := NewSender(iface, d.slots[len(d.slots)-1].target)
			if err != nil {
				return nil, fmt.Errorf("deluge: sender for %s:%d: %w", iface, port, err)
			}
			d.senders = append(d.senders, sender)

			port++
			idx++
		}
	}
	return d, nil
}

// SenderCount returns the total number of sender threads this Deluge
// will run.
func (d *Deluge) SenderCount() int { return len(d.senders) }

// resolveToFirst clamps the requested to_first split to the total sender
// count. With no secondary target, everything routes to primary
// regardless of the requested to_first.
func resolveToFirst(total, toFirst int, hasSecondary bool) int {
	if !hasSecondary || toFirst > total {
		return total
	}
	if toFirst < 0 {
		return 0
	}
	return toFirst
}

// Run opens the trigger socket and processes triggers until ctx is
// canceled. Each accepted trigger spawns one burst cycle across all
// senders, synchronized by a start barrier (senders + this goroutine) and
// an end barrier (senders only, whose leader logs elapsed time).
func (d *Deluge) Run(ctx context.Context) error {
	lc := net.ListenConfig{Control: reusePortControl}
	pc, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf("0.0.0.0:%d", d.TriggerPort))
	if err != nil {
		return fmt.Errorf("deluge: listen trigger port %d: %w", d.TriggerPort, err)
	}
	conn := pc.(*net.UDPConn)
	defer conn.Close()

	startBarrier := barrier.New(len(d.senders) + 1)
	endBarrier := barrier.New(len(d.senders))
	triggerCh := make(chan Trigger, 1)

	for i, sender := range d.senders {
		sender := sender
		go d.runSender(ctx, sender, startBarrier, endBarrier, triggerCh, i)
	}

	buf := make([]byte, TriggerSize+1)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("deluge: trigger recv: %w", err)
		}

		trig, derr := Decode(buf[:n])
		if derr != nil {
			flog.Debugf("deluge: malformed trigger (%d bytes): %v, dropping", n, derr)
			continue
		}

		now := time.Now()
		if d.lastAcceptedOK && now.Sub(d.lastAccepted) < DebounceWindow {
			flog.Debugf("deluge: trigger within debounce window, dropping")
			continue
		}
		d.lastAccepted = now
		d.lastAcceptedOK = true

		flog.Infof("deluge: accepted trigger frames=%d exptime=%f", trig.Frames, trig.Exptime)
		for range d.senders {
			triggerCh <- trig
		}
		startBarrier.Wait()
	}
}

// runSender is one sender thread's lifecycle: receive the trigger, align
// on the start barrier, run its paced burst, then rejoin the end barrier
// where the elected leader logs elapsed time.
func (d *Deluge) runSender(ctx context.Context, sender *Sender, startBarrier, endBarrier *barrier.Barrier, triggerCh <-chan Trigger, senderIdx int) {
	defer sender.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case trig := <-triggerCh:
			startBarrier.Wait()
			start := time.Now()

			frameBase := uint64(senderIdx) << 32 // keep per-sender frame streams disjoint
			if err := sender.Burst(start, trig.Frames, trig.Exptime, frameBase); err != nil {
				flog.Warnf("deluge: sender %d burst: %v", senderIdx, err)
			}

			if endBarrier.Wait() {
				flog.Infof("deluge: burst complete, elapsed=%s", time.Since(start))
			}
		}
	}
}
