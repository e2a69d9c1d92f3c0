//go:build !linux

package deluge

import (
	"net"
	"syscall"
)

// reusePortControl is a no-op outside Linux: SO_REUSEPORT is a
// Linux-specific facility, and this path is only exercised when multiple
// trigger listeners share one port, which a single-process deployment
// doesn't need.
func reusePortControl(_, _ string, _ syscall.RawConn) error { return nil }

// EnableBroadcast is a no-op outside Linux and always returns nil: it
// does not set SO_BROADCAST, so the socket keeps the platform default.
func EnableBroadcast(conn *net.UDPConn) error { return nil }
