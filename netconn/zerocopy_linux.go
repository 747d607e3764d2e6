//go:build linux

package netconn

import (
	"net"

	"golang.org/x/sys/unix"
)

// raiseBuffers sets SO_SNDBUF/SO_RCVBUF directly via the raw socket,
// matching the original's setsockopt(SOL_SOCKET, SO_SNDBUF/SO_RCVBUF) calls.
func raiseBuffers(pc *net.UDPConn, bytes int) {
	raw, err := pc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bytes)
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
	})
}

// enableZeroCopy attempts SO_ZEROCOPY; the caller falls back to a
// regular write path if this returns false, exactly like the
// original's "SO_ZEROCOPY unsupported, continuing without it" path.
func enableZeroCopy(pc *net.UDPConn) bool {
	raw, err := pc.SyscallConn()
	if err != nil {
		return false
	}
	ok := false
	raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ZEROCOPY, 1); err == nil {
			ok = true
		}
	})
	return ok
}

// sendZeroCopy issues a single sendmsg with MSG_ZEROCOPY to addr.
func sendZeroCopy(pc *net.UDPConn, addr *net.UDPAddr, buf []byte) (int, error) {
	raw, err := pc.SyscallConn()
	if err != nil {
		return 0, err
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	var n int
	var sendErr error
	werr := raw.Write(func(fd uintptr) bool {
		sendErr = unix.Sendmsg(int(fd), buf, nil, sa, unix.MSG_ZEROCOPY)
		if sendErr == nil {
			n = len(buf)
		}
		return true
	})
	if werr != nil {
		return 0, werr
	}
	return n, sendErr
}
