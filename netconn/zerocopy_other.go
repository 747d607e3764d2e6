//go:build !linux

package netconn

import "net"

// raiseBuffers falls back to the portable stdlib setters on platforms
// without direct SO_SNDBUF/SO_RCVBUF syscall access from this package.
func raiseBuffers(pc *net.UDPConn, bytes int) {
	pc.SetWriteBuffer(bytes)
	pc.SetReadBuffer(bytes)
}

// enableZeroCopy is unsupported outside Linux; callers fall back to a
// regular write path transparently, per Design Notes §9.
func enableZeroCopy(*net.UDPConn) bool { return false }

// sendZeroCopy is never called when enableZeroCopy returns false.
func sendZeroCopy(*net.UDPConn, *net.UDPAddr, []byte) (int, error) {
	return 0, errZeroCopyUnsupported
}

var errZeroCopyUnsupported = &zeroCopyUnsupportedError{}

type zeroCopyUnsupportedError struct{}

func (*zeroCopyUnsupportedError) Error() string { return "netconn: zero-copy unsupported on this platform" }
