// Package netconn adapts a Go UDP socket to frftp.PacketConn: it
// raises socket buffers to absorb bursts (the original's 8 MiB
// SO_SNDBUF/SO_RCVBUF) and offers an optional zero-copy send path that
// the core remains correct without, per Design Notes §9.
package netconn

import (
	"net"
	"time"
)

// bigBufferBytes mirrors the original reference's 8 MiB socket buffer size.
const bigBufferBytes = 8 << 20

// Conn wraps a *net.UDPConn to satisfy frftp.PacketConn.
type Conn struct {
	pc       *net.UDPConn
	zeroCopy bool
}

// Dial opens an unconnected UDP socket on an ephemeral local port, for
// sender use. The socket is not connected to peer; every WriteTo
// targets the address passed in explicitly.
func Dial(peer *net.UDPAddr, wantZeroCopy bool) (*Conn, error) {
	pc, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return wrap(pc, wantZeroCopy), nil
}

// Listen opens a UDP socket bound to port, for receiver use.
func Listen(port int, wantZeroCopy bool) (*Conn, error) {
	pc, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	return wrap(pc, wantZeroCopy), nil
}

func wrap(pc *net.UDPConn, wantZeroCopy bool) *Conn {
	raiseBuffers(pc, bigBufferBytes)
	zc := false
	if wantZeroCopy {
		zc = enableZeroCopy(pc)
	}
	return &Conn{pc: pc, zeroCopy: zc}
}

// SetReadTimeout arms the read deadline used as both the sender's
// ACK-drain timeout and the receiver's polling interval.
func (c *Conn) SetReadTimeout(d time.Duration) error {
	return c.pc.SetReadDeadline(time.Now().Add(d))
}

func (c *Conn) ReadFrom(p []byte) (int, net.Addr, error) {
	return c.pc.ReadFrom(p)
}

// WriteTo sends p to addr, preferring the zero-copy path when enabled
// and the destination is a *net.UDPAddr; any failure falls back to a
// regular write transparently.
func (c *Conn) WriteTo(p []byte, addr net.Addr) (int, error) {
	if c.zeroCopy {
		if udpAddr, ok := addr.(*net.UDPAddr); ok {
			if n, err := sendZeroCopy(c.pc, udpAddr, p); err == nil {
				return n, nil
			}
		}
	}
	return c.pc.WriteTo(p, addr)
}

func (c *Conn) Close() error { return c.pc.Close() }

// LocalAddr returns the socket's bound local address.
func (c *Conn) LocalAddr() net.Addr { return c.pc.LocalAddr() }
