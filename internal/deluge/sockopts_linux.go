//go:build linux

package deluge

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePortControl is installed on a net.ListenConfig so the trigger
// socket can bind SO_REUSEPORT, letting multiple Deluge processes share
// one trigger port on the same host.
func reusePortControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// EnableBroadcast turns on SO_BROADCAST so conn can send to a broadcast
// address, required for the standalone trigger-firing helper.
func EnableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
