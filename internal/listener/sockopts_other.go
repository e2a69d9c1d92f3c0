//go:build !linux

package listener

import (
	"net"

	"jungfraurx/internal/flog"
)

// setRecvBuffer uses the portable net.UDPConn API on platforms without
// SO_RXQ_OVFL support. Still best-effort, still log-only on failure.
func setRecvBuffer(conn *net.UDPConn, bytes int) {
	if err := conn.SetReadBuffer(bytes); err != nil {
		flog.Warnf("listener: SetReadBuffer %d: %v", bytes, err)
	}
}

// enableRxqOvfl is a no-op outside Linux: the kernel-drop-accounting
// ancillary message is a Linux-specific facility.
func enableRxqOvfl(conn *net.UDPConn) {
	flog.Debugf("listener: SO_RXQ_OVFL unsupported on this platform, kernel drop accounting disabled")
}

// recvmsgOverflow falls back to a plain read; overflow is always 0.
func recvmsgOverflow(conn *net.UDPConn, buf []byte) (int, uint32, error) {
	n, err := conn.Read(buf)
	return n, 0, err
}
