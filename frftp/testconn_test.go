package frftp

import (
	"net"
	"sync"
	"time"
)

// fakeAddr and pipeConn give the sender/receiver unit tests a minimal,
// in-process PacketConn pair without pulling in the simnet harness
// (reserved for the end-to-end property tests).
type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

type pipeConn struct {
	self    fakeAddr
	inbox   chan pipeMsg
	peer    *pipeConn
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

type pipeMsg struct {
	data []byte
	from net.Addr
}

func newPipePair(aAddr, bAddr fakeAddr) (*pipeConn, *pipeConn) {
	a := &pipeConn{self: aAddr, inbox: make(chan pipeMsg, 256), timeout: time.Second}
	b := &pipeConn{self: bAddr, inbox: make(chan pipeMsg, 256), timeout: time.Second}
	a.peer = b
	b.peer = a
	return a, b
}

func (c *pipeConn) SetReadTimeout(d time.Duration) error {
	c.timeout = d
	return nil
}

func (c *pipeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case m := <-c.inbox:
		return copy(p, m.data), m.from, nil
	case <-timer.C:
		return 0, nil, errPipeTimeout
	}
}

func (c *pipeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, errPipeClosed
	}
	cp := append([]byte(nil), p...)
	select {
	case c.peer.inbox <- pipeMsg{data: cp, from: c.self}:
	default:
	}
	return len(p), nil
}

func (c *pipeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type pipeErr string

func (e pipeErr) Error() string { return string(e) }

const (
	errPipeTimeout = pipeErr("pipe: read timeout")
	errPipeClosed  = pipeErr("pipe: closed")
)
