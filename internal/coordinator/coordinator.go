// Package coordinator fans out Listeners across a set of interfaces and
// CPU cores, and collects their lifecycle events onto one channel.
package coordinator

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"jungfraurx/internal/affinity"
	"jungfraurx/internal/barrier"
	"jungfraurx/internal/bufpool"
	"jungfraurx/internal/detector"
	"jungfraurx/internal/flog"
	"jungfraurx/internal/iterator"
	"jungfraurx/internal/listener"
)

// ListenersPerInterface is the number of detector modules served by one
// data-plane NIC in the deployed topology.
const ListenersPerInterface = 9

// BuffersPerListener is the per-listener buffer pool size
// (THREAD_IMAGE_BUFFER_LENGTH).
const BuffersPerListener = 10

// assignment binds one Listener to the port and CPU core it will run on.
// Listeners bind 0.0.0.0, so no interface is recorded here.
type assignment struct {
	port int
	core int
}

// Coordinator owns the fleet of Listeners spawned for one set of
// interfaces, the shared acquisition counter, the lifecycle event
// channel, and the end-of-acquisition barrier.
type Coordinator struct {
	BasePort int
	Sink     listener.Sink

	assignments []assignment
	acqCounter  atomic.Uint64
	events      chan listener.Event
	barrier     *barrier.Barrier
}

// New computes the listener assignment for ifaces starting at basePort:
// ListenersPerInterface consecutive ports per interface, one reserved CPU
// core per listener taken from the reverse of the available core set (so
// low-numbered cores are left for housekeeping).
func New(ifaces []net.IP, basePort int, sink listener.Sink) *Coordinator {
	n := len(ifaces) * ListenersPerInterface
	numCPU := runtime.NumCPU()

	c := &Coordinator{
		BasePort: basePort,
		Sink:     sink,
		events:   make(chan listener.Event, 4096),
	}

	reverseCores := make([]int, numCPU)
	for i := range reverseCores {
		reverseCores[i] = numCPU - 1 - i
	}
	cores := &iterator.Iterator[int]{Items: reverseCores}

	port := basePort
	for range ifaces {
		for j := 0; j < ListenersPerInterface; j++ {
			c.assignments = append(c.assignments, assignment{port: port, core: cores.Next()})
			port++
		}
	}
	c.barrier = barrier.New(n)
	return c
}

// Events returns the channel onto which all listeners publish lifecycle
// events. The coordinator never reads from it itself; consuming those
// events (logging, metrics, dashboards, ...) is the caller's job.
func (c *Coordinator) Events() <-chan listener.Event { return c.events }

// Run starts one goroutine per assignment, each locked to its own OS
// thread, pinned to its assigned core, raised to maximum thread priority
// (both best-effort, log-only on failure), then runs its Listener loop.
// Run blocks until ctx is canceled or a listener returns a fatal error, in
// which case that error is returned — one crashing listener stops the
// whole pipeline, there is no per-listener isolation.
func (c *Coordinator) Run(ctx context.Context) error {
	if len(c.assignments) == 0 {
		return fmt.Errorf("coordinator: no listener assignments (no matching interfaces)")
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(c.assignments))

	for _, a := range c.assignments {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if err := affinity.Pin(a.core); err != nil {
				flog.Warnf("coordinator: pin listener port %d to core %d: %v", a.port, a.core, err)
			}
			if err := affinity.RaisePriority(affinity.MaxPriority()); err != nil {
				flog.Warnf("coordinator: raise priority for listener port %d: %v", a.port, err)
			}

			pool := bufpool.New(BuffersPerListener, detector.FrameDataSize)
			l := listener.New(a.port, pool, c.Sink, c.events, &c.acqCounter, c.barrier)
			if err := l.Run(ctx); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-ctx.Done():
		<-done
		return nil
	case err := <-errCh:
		return err
	case <-done:
		return nil
	}
}

// Barrier returns the fleet's end-of-acquisition rendezvous point.
func (c *Coordinator) Barrier() *barrier.Barrier { return c.barrier }

// ListenerCount returns the total number of listeners this coordinator
// will spawn.
func (c *Coordinator) ListenerCount() int { return len(c.assignments) }
