// Package simnet is a test-only simulated datagram channel: lossy,
// reordering (via per-packet delay jitter), duplicating, and
// optionally rate-limited. It exists to drive the property tests in
// spec §8 ("for all win, rto, loss, RTT ... the session terminates and
// the sink equals the source") without a real network. It is never
// imported by the frftp core.
package simnet

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Addr identifies an Endpoint within a Network.
type Addr string

func (a Addr) Network() string { return "simnet" }
func (a Addr) String() string  { return string(a) }

// Params configures the channel's impairments.
type Params struct {
	LossProb  float64     // [0,1): probability a packet is dropped
	DupProb   float64     // [0,1): probability a packet is delivered twice
	MinDelay  time.Duration
	MaxDelay  time.Duration // jitter within [MinDelay,MaxDelay] drives reordering
	RateLimit rate.Limit    // bytes/sec cap; 0 disables pacing
	Burst     int
}

// Network routes datagrams between Endpoints, applying Params to every
// hop.
type Network struct {
	mu        sync.Mutex
	params    Params
	endpoints map[Addr]*Endpoint
	limiter   *rate.Limiter
	rng       *rand.Rand
}

// NewNetwork creates a Network with the given impairment parameters
// and an rng seeded from seed (deterministic, for reproducible tests).
func NewNetwork(p Params, seed int64) *Network {
	var lim *rate.Limiter
	if p.RateLimit > 0 {
		lim = rate.NewLimiter(p.RateLimit, p.Burst)
	}
	return &Network{
		params:    p,
		endpoints: make(map[Addr]*Endpoint),
		limiter:   lim,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// NewEndpoint registers and returns a new Endpoint bound to addr.
func (n *Network) NewEndpoint(addr Addr) *Endpoint {
	ep := &Endpoint{addr: addr, inbox: make(chan packet, 1024), net: n, timeout: time.Second}
	n.mu.Lock()
	n.endpoints[addr] = ep
	n.mu.Unlock()
	return ep
}

type packet struct {
	data []byte
	from net.Addr
}

// Endpoint implements frftp.PacketConn against a simulated Network.
type Endpoint struct {
	addr    Addr
	inbox   chan packet
	net     *Network
	timeout time.Duration
	closed  bool
	mu      sync.Mutex
}

func (e *Endpoint) SetReadTimeout(d time.Duration) error {
	e.timeout = d
	return nil
}

func (e *Endpoint) ReadFrom(p []byte) (int, net.Addr, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case pkt, ok := <-e.inbox:
		if !ok {
			return 0, nil, errClosed
		}
		n := copy(p, pkt.data)
		return n, pkt.from, nil
	case <-timer.C:
		return 0, nil, errTimeout
	}
}

func (e *Endpoint) WriteTo(p []byte, addr net.Addr) (int, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, errClosed
	}
	e.mu.Unlock()

	dst, ok := addr.(Addr)
	if !ok {
		dst = Addr(addr.String())
	}
	cp := append([]byte(nil), p...)
	if e.net.limiter != nil {
		e.net.limiter.WaitN(context.Background(), len(cp))
	}
	e.net.deliver(cp, e.addr, dst)
	return len(p), nil
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.inbox)
	}
	return nil
}

func (e *Endpoint) Addr() Addr { return e.addr }

// deliver applies loss/duplication/delay jitter before enqueueing data
// onto dst's inbox. Delay jitter is what produces reordering: two
// packets sent back-to-back can arrive in either order.
func (n *Network) deliver(data []byte, from, to Addr) {
	n.mu.Lock()
	dst, ok := n.endpoints[to]
	params := n.params
	lossRoll := n.rng.Float64()
	dupRoll := n.rng.Float64()
	delay := params.MinDelay
	if params.MaxDelay > params.MinDelay {
		delay += time.Duration(n.rng.Int63n(int64(params.MaxDelay - params.MinDelay + 1)))
	}
	n.mu.Unlock()
	if !ok {
		return
	}

	send := func() {
		if lossRoll < params.LossProb {
			return
		}
		enqueue(dst, data, from)
		if dupRoll < params.DupProb {
			enqueue(dst, data, from)
		}
	}

	if delay <= 0 {
		send()
	} else {
		time.AfterFunc(delay, send)
	}
}

func enqueue(dst *Endpoint, data []byte, from net.Addr) {
	dst.mu.Lock()
	closed := dst.closed
	dst.mu.Unlock()
	if closed {
		return
	}
	select {
	case dst.inbox <- packet{data: data, from: from}:
	default:
		// inbox full: the simulated link drops it, same as a real
		// socket buffer overrun.
	}
}

var (
	errTimeout = &simnetError{"read timeout"}
	errClosed  = &simnetError{"endpoint closed"}
)

type simnetError struct{ msg string }

func (e *simnetError) Error() string   { return "simnet: " + e.msg }
func (e *simnetError) Timeout() bool   { return e == errTimeout }
func (e *simnetError) Temporary() bool { return e == errTimeout }
