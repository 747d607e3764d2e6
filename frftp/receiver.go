package frftp

import (
	"net"

	"go.uber.org/zap"
)

// Receiver implements spec §4.4: it accepts datagrams from a single
// locked-on peer, places DATA payloads at their computed offsets in
// the sink, tracks a have-bitmap and cumulative ACK, and replies with
// an ACK/SACK on every arrival (including duplicates).
type Receiver struct {
	cfg  Config
	conn PacketConn
	sink ByteSink
	log  *zap.SugaredLogger
	id   string

	payloadMax int

	started  bool
	finished bool
	peer     net.Addr

	expectedTotal uint64
	received      uint64
	totalSegs     uint32
	cumAck        uint32
	have          []bool

	buf    []byte
	ackBuf []byte
}

// NewReceiver constructs a Receiver that will listen on conn using cfg.
// The file size, segment count, and have-bitmap are not known until
// the first valid START arrives; see Receiver.Run.
func NewReceiver(conn PacketConn, sink ByteSink, cfg Config, log *zap.SugaredLogger) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = newNopLogger()
	}
	p := cfg.PayloadMax()
	id := newSessionID()
	return &Receiver{
		cfg:        cfg,
		conn:       conn,
		sink:       sink,
		id:         id,
		log:        log.With("session", id, "role", "receiver"),
		payloadMax: p,
		buf:        make([]byte, HeaderSize+p+32),
		ackBuf:     make([]byte, HeaderSize+AckPayloadSize),
	}, nil
}

// Run blocks, receiving datagrams and dispatching them until a
// complete session is observed (END received with cum_ack == totalSegs)
// or a fatal error occurs. A size mismatch after END is reported as
// *SizeMismatch.
func (r *Receiver) Run() error {
	for !r.finished {
		if err := r.conn.SetReadTimeout(r.cfg.RTO()); err != nil {
			return err
		}
		n, addr, err := r.conn.ReadFrom(r.buf)
		if err != nil {
			continue // receive timeout: just the loop's polling interval
		}
		r.handleDatagram(r.buf[:n], addr)
	}
	if err := r.sink.Sync(); err != nil {
		return &IOError{Op: "sink sync", Err: err}
	}
	if r.started && r.received != r.expectedTotal {
		return &SizeMismatch{Expected: r.expectedTotal, Received: r.received}
	}
	return nil
}

func (r *Receiver) handleDatagram(frame []byte, addr net.Addr) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return // malformed: dropped silently
	}

	switch h.Type {
	case TypeSTART:
		r.handleStart(frame, addr)
	case TypeDATA:
		r.handleData(frame, addr)
	case TypeEND:
		r.handleEnd(frame, addr)
	default:
		// unknown type byte: silently dropped per spec §4.1
	}
}

// handleStart implements spec §4.2 (receiver side): accept only
// type=START seq=0 len=8; latch state and peer on the first valid
// START; acknowledge every valid START idempotently without resetting.
func (r *Receiver) handleStart(frame []byte, addr net.Addr) {
	fileSize, err := DecodeStart(frame)
	if err != nil {
		return
	}

	if !r.started {
		r.expectedTotal = fileSize
		r.totalSegs = totalSegments(fileSize, r.payloadMax)
		r.have = make([]bool, r.totalSegs+1)
		if err := r.sink.Resize(fileSize); err != nil {
			r.log.Errorw("resize sink", "err", err)
			return
		}
		r.peer = addr
		r.started = true
		r.log.Infow("start accepted", "file_size", fileSize, "total_segs", r.totalSegs)
	}

	if !r.sameAsPeer(addr) {
		return
	}
	r.sendAck()
}

// handleData implements spec §4.4's DATA case.
func (r *Receiver) handleData(frame []byte, addr net.Addr) {
	if !r.started || !r.sameAsPeer(addr) {
		return
	}
	seq, payload, err := DecodeData(frame)
	if err != nil {
		return
	}
	if len(payload) > r.payloadMax || seq == 0 || seq > r.totalSegs {
		return // oversize or out-of-range DATA is malformed: drop, don't ACK
	}

	if !r.have[seq] {
		off := segmentOffset(seq, r.payloadMax)
		if _, err := r.sink.WriteAt(payload, int64(off)); err != nil {
			r.log.Errorw("write sink", "seq", seq, "err", err)
			return
		}
		r.received += uint64(len(payload))
		r.have[seq] = true
		for r.cumAck < r.totalSegs && r.have[r.cumAck+1] {
			r.cumAck++
		}
	}

	// Always reply, including on duplicates: the sender may have lost
	// the earlier ACK.
	r.sendAck()
}

// handleEnd implements spec §4.4's END case.
func (r *Receiver) handleEnd(frame []byte, addr net.Addr) {
	if !r.started || !r.sameAsPeer(addr) {
		return
	}
	if _, err := DecodeEnd(frame); err != nil {
		return
	}
	r.sendAck()
	if r.cumAck == r.totalSegs {
		r.finished = true
	}
	// else: remain in the loop, the sender will keep retransmitting data.
}

// sameAsPeer reports whether addr matches the latched peer address.
// Before a peer is latched this always returns true; the first valid
// START is what latches it.
func (r *Receiver) sameAsPeer(addr net.Addr) bool {
	if r.peer == nil {
		return true
	}
	return addr.String() == r.peer.String()
}

// sackMask implements spec §4.4's SACK construction: bit i set iff
// cum_ack+1+i <= totalSegs and have[cum_ack+1+i].
func (r *Receiver) sackMask() uint64 {
	var mask uint64
	for i := 0; i < 64; i++ {
		seq := r.cumAck + 1 + uint32(i)
		if seq <= r.totalSegs && r.have[seq] {
			mask |= uint64(1) << uint(i)
		}
	}
	return mask
}

func (r *Receiver) sendAck() {
	frame := EncodeAck(r.ackBuf, AckPayload{CumAck: r.cumAck, SackMask: r.sackMask()})
	if _, err := r.conn.WriteTo(frame, r.peer); err != nil {
		r.log.Warnw("send ack", "err", err)
	}
}

// CumAck returns the receiver's current cumulative ACK.
func (r *Receiver) CumAck() uint32 { return r.cumAck }

// TotalSegs returns the negotiated segment count (0 before START).
func (r *Receiver) TotalSegs() uint32 { return r.totalSegs }

// ID returns the receiver's log correlation ID.
func (r *Receiver) ID() string { return r.id }
