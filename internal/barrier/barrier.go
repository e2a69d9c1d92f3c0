// Package barrier implements a reusable cyclic rendezvous point with
// one-shot leader election per cycle. Neither the standard library nor
// golang.org/x/sync has this primitive: sync.WaitGroup is one-shot
// (Add/Wait, then discarded) and has no notion of "which caller arrived
// last"; this type is cyclic (the same Barrier is used acquisition after
// acquisition) and surfaces exactly one arrival per cycle as the leader,
// so callers can do idempotent, single-shot work (like logging) at a
// synchronization point without every party doing it redundantly.
package barrier

import "sync"

// Barrier rendezvouses exactly parties goroutines per cycle. Once all
// parties have called Wait, they are all released and the barrier resets
// for the next cycle.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	cycle   uint64
}

// New returns a Barrier for exactly parties goroutines. parties must be
// at least 1.
func New(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until parties goroutines have called Wait for the current
// cycle, then releases them all and advances to the next cycle. The
// return value is true for exactly one caller per cycle: the leader,
// elected as whichever goroutine happened to be the one that completed
// the rendezvous (arrival order otherwise carries no meaning).
func (b *Barrier) Wait() (isLeader bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	myCycle := b.cycle
	b.waiting++

	if b.waiting == b.parties {
		b.waiting = 0
		b.cycle++
		b.cond.Broadcast()
		return true
	}

	for b.cycle == myCycle {
		b.cond.Wait()
	}
	return false
}

// Parties returns the number of goroutines expected per cycle.
func (b *Barrier) Parties() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parties
}
