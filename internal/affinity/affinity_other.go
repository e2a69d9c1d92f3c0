//go:build !linux

package affinity

import "errors"

var errUnsupported = errors.New("affinity: not supported on this platform")

// Pin is a no-op stub outside Linux; callers log the returned error and
// continue.
func Pin(core int) error { return errUnsupported }

// RaisePriority is a no-op stub outside Linux.
func RaisePriority(priority int) error { return errUnsupported }

// MaxPriority returns a conservative placeholder outside Linux.
func MaxPriority() int { return 99 }
