//go:build linux

package listener

import (
	"encoding/binary"
	"net"

	"golang.org/x/sys/unix"

	"jungfraurx/internal/flog"
)

// setRecvBuffer best-effort grows the socket's receive buffer. Failure, or
// the kernel silently clamping the request below what was asked, is
// logged and otherwise ignored — never fatal for correctness.
func setRecvBuffer(conn *net.UDPConn, bytes int) {
	raw, err := conn.SyscallConn()
	if err != nil {
		flog.Warnf("listener: SyscallConn for SO_RCVBUF: %v", err)
		return
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
	})
	if err != nil {
		sockErr = err
	}
	if sockErr != nil {
		flog.Warnf("listener: setsockopt SO_RCVBUF %d: %v", bytes, sockErr)
	}
}

// enableRxqOvfl turns on SO_RXQ_OVFL so every recvmsg carries the kernel's
// running socket-queue-drop counter as an ancillary control message.
func enableRxqOvfl(conn *net.UDPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		flog.Warnf("listener: SyscallConn for SO_RXQ_OVFL: %v", err)
		return
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RXQ_OVFL, 1)
	})
	if err != nil {
		sockErr = err
	}
	if sockErr != nil {
		flog.Warnf("listener: setsockopt SO_RXQ_OVFL: %v", sockErr)
	}
}

// recvmsgOverflow reads one datagram into buf and returns, alongside its
// length, the kernel-reported overflow count carried in the SO_RXQ_OVFL
// ancillary message, if present. It honors conn's read deadline exactly
// like conn.Read would, via the raw conn's Read poller integration.
func recvmsgOverflow(conn *net.UDPConn, buf []byte) (int, uint32, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, 0, err
	}

	var (
		n      int
		oob    [64]byte
		oobn   int
		ovfl   uint32
		opErr  error
	)
	err = raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, opErr = unix.Recvmsg(int(fd), buf, oob[:], 0)
		if opErr == unix.EAGAIN {
			return false
		}
		return true
	})
	if err != nil {
		return 0, 0, err
	}
	if opErr != nil {
		return 0, 0, opErr
	}

	if oobn > 0 {
		msgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
		if perr == nil {
			for _, m := range msgs {
				if m.Header.Level == unix.SOL_SOCKET && m.Header.Type == unix.SO_RXQ_OVFL && len(m.Data) >= 4 {
					ovfl = binary.LittleEndian.Uint32(m.Data)
				}
			}
		}
	}
	return n, ovfl, nil
}
