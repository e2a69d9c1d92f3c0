//go:build linux

// Package affinity pins the calling OS thread to a single CPU core and
// raises its scheduling priority, one thread per listener. Both are
// best-effort: failure is logged, never fatal — affinity/priority
// failures degrade performance, not correctness.
package affinity

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// schedParam mirrors struct sched_param from <sched.h>; only sched_priority
// is populated, the rest of the kernel struct is reserved/unused for
// SCHED_FIFO.
type schedParam struct {
	Priority int32
}

// Pin sets the calling OS thread's CPU affinity to exactly core. It does
// not lock the goroutine to its thread: callers must already have called
// runtime.LockOSThread.
func Pin(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity core %d: %w", core, err)
	}
	return nil
}

// RaisePriority switches the calling thread to SCHED_FIFO at the given
// priority (1..99; the reference implementation uses the platform
// maximum). Requires CAP_SYS_NICE or equivalent; on failure the thread
// keeps its default scheduling policy.
func RaisePriority(priority int) error {
	param := schedParam{Priority: int32(priority)}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, uintptr(unix.SCHED_FIFO), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return fmt.Errorf("affinity: sched_setscheduler SCHED_FIFO prio %d: %w", priority, errno)
	}
	return nil
}

// MaxPriority returns the maximum priority value for SCHED_FIFO on this
// system, or a conservative default if the query fails.
func MaxPriority() int {
	max, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MAX, uintptr(unix.SCHED_FIFO), 0, 0)
	if errno != 0 {
		return 99
	}
	return int(max)
}
