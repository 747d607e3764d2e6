package frftp

import (
	"net"
	"time"

	"go.uber.org/zap"
)

// Sender drives the sliding-window selective-repeat engine described
// in spec §4.3. One Sender serves exactly one session; per-segment
// state is allocated once the file size is known (construction time,
// since the sender already knows its own source size) and lives for
// the Sender's lifetime, per invariant 5.
type Sender struct {
	cfg  Config
	conn PacketConn
	peer net.Addr
	src  ByteSource
	log  *zap.SugaredLogger
	id   string

	payloadMax int
	fileSize   uint64
	totalSegs  uint32

	acked   []bool
	sentTs  []time.Time
	txCnt   []uint32
	base    uint32
	nextSeq uint32

	buf     []byte   // scratch for START/END: content is constant across retries, safe to reuse
	segBufs [][]byte // one dedicated buffer per seq, filled lazily; never shared across
	// different segments, so a zero-copy send still in flight in the kernel is
	// never overwritten with another segment's bytes. A retransmit of the same
	// seq reuses its own buffer, which only ever holds that seq's bytes.
	ackBuf []byte
}

// NewSender constructs a Sender for src over conn, addressed to peer.
// cfg is validated; an *InvalidConfig is returned on a bad MTU, RTO or
// retry count, while an out-of-range window is clamped to DefaultWindow.
func NewSender(conn PacketConn, peer net.Addr, src ByteSource, cfg Config, log *zap.SugaredLogger) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = newNopLogger()
	}
	p := cfg.PayloadMax()
	size := src.Size()
	total := totalSegments(size, p)
	id := newSessionID()

	s := &Sender{
		cfg:        cfg,
		conn:       conn,
		peer:       peer,
		src:        src,
		id:         id,
		log:        log.With("session", id, "role", "sender"),
		payloadMax: p,
		fileSize:   size,
		totalSegs:  total,
		acked:      make([]bool, total+1),
		sentTs:     make([]time.Time, total+1),
		txCnt:      make([]uint32, total+1),
		base:       1,
		nextSeq:    1,
		buf:        make([]byte, HeaderSize+p),
		segBufs:    make([][]byte, total+1),
		ackBuf:     make([]byte, HeaderSize+AckPayloadSize+32),
	}
	return s, nil
}

// Run executes the START handshake, the main transmit/ack/retransmit
// loop until base > totalSegs, then the END handshake. It returns the
// first fatal error (HandshakeFailed or RetriesExhausted); malformed
// or short reads are logged and absorbed.
func (s *Sender) Run() error {
	if err := s.handshakeStart(); err != nil {
		return err
	}
	s.log.Infow("start acked", "total_segs", s.totalSegs, "file_size", s.fileSize)

	for s.base <= s.totalSegs {
		s.transmitWindow()

		if err := s.drainAck(); err != nil {
			s.log.Debugw("ack drain", "err", err)
		}

		if err := s.retransmitTimeouts(); err != nil {
			return err
		}
	}

	return s.handshakeEnd()
}

// transmitWindow implements spec §4.3 step 1: send new segments while
// next_to_send - base < win, strictly ordered by seq.
func (s *Sender) transmitWindow() {
	for s.nextSeq <= s.totalSegs && int(s.nextSeq-s.base) < s.cfg.Window {
		s.sendSegment(s.nextSeq)
		s.nextSeq++
	}
}

func (s *Sender) sendSegment(seq uint32) {
	off := segmentOffset(seq, s.payloadMax)
	l := segmentLen(seq, s.fileSize, s.payloadMax)

	buf := s.segBufs[seq]
	if buf == nil {
		buf = make([]byte, HeaderSize+s.payloadMax)
		s.segBufs[seq] = buf
	}
	payload := buf[HeaderSize : HeaderSize+int(l)]
	if _, err := s.src.ReadAt(payload, int64(off)); err != nil {
		s.log.Errorw("read source", "seq", seq, "err", err)
		return
	}
	frame := EncodeData(buf, seq, payload)

	if _, err := s.conn.WriteTo(frame, s.peer); err != nil {
		s.log.Warnw("send data", "seq", seq, "err", err)
	}
	s.txCnt[seq]++
	s.sentTs[seq] = time.Now()
}

// drainAck implements spec §4.3 step 2: receive at most one ACK per
// tick, bounded by one RTO, and fold it into the acked bitmap.
func (s *Sender) drainAck() error {
	if err := s.conn.SetReadTimeout(s.cfg.RTO()); err != nil {
		return err
	}
	n, _, err := s.conn.ReadFrom(s.ackBuf)
	if err != nil {
		return err // timeout or short read: "no ACK this tick", loop continues
	}
	ap, err := DecodeAck(s.ackBuf[:n])
	if err != nil {
		return err // MalformedFrame: dropped silently
	}

	cum := ap.CumAck
	if cum > s.totalSegs {
		cum = s.totalSegs
	}

	for seq := s.base; seq <= cum; seq++ {
		s.acked[seq] = true
	}
	for s.base <= s.totalSegs && s.acked[s.base] {
		s.base++
	}

	for i := 0; i < 64; i++ {
		bit := uint64(1) << uint(i)
		if ap.SackMask&bit == 0 {
			continue
		}
		seq := cum + 1 + uint32(i)
		if seq <= s.totalSegs {
			s.acked[seq] = true
		}
	}
	// Re-advance base: a SACK bit may extend the contiguous acked
	// prefix past cum_ack within the same tick (spec §9 open question).
	for s.base <= s.totalSegs && s.acked[s.base] {
		s.base++
	}
	return nil
}

// retransmitTimeouts implements spec §4.3 step 3: for each
// outstanding, unacked segment within the window whose RTO elapsed,
// retransmit; if its retry cap is exhausted, fail the session.
func (s *Sender) retransmitTimeouts() error {
	now := time.Now()
	rto := s.cfg.RTO()
	for seq := s.base; seq < s.nextSeq; seq++ {
		if s.acked[seq] {
			continue
		}
		if s.txCnt[seq] >= uint32(s.cfg.Retries) {
			s.log.Errorw("retries exhausted", "seq", seq)
			return &RetriesExhausted{Seq: seq}
		}
		if now.Sub(s.sentTs[seq]) >= rto {
			s.sendSegment(seq)
		}
	}
	return nil
}

// handshakeStart implements spec §4.2 (sender side): send START, wait
// up to one RTO for any ACK, repeat up to Retries times.
func (s *Sender) handshakeStart() error {
	frame := EncodeStart(s.buf, s.fileSize)
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if _, err := s.conn.WriteTo(frame, s.peer); err != nil {
			s.log.Warnw("send START", "attempt", attempt, "err", err)
		}
		if err := s.conn.SetReadTimeout(s.cfg.RTO()); err != nil {
			return err
		}
		n, _, err := s.conn.ReadFrom(s.ackBuf)
		if err == nil {
			if h, derr := DecodeHeader(s.ackBuf[:n]); derr == nil && h.Type == TypeACK {
				return nil // any ACK ends the handshake loop: see spec §9.
			}
		}
	}
	return &HandshakeFailed{Phase: "START"}
}

// handshakeEnd implements spec §4.3's END handshake: transmit END,
// await any ACK within one RTO, up to Retries attempts.
func (s *Sender) handshakeEnd() error {
	frame := EncodeEnd(s.buf, s.totalSegs)
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if _, err := s.conn.WriteTo(frame, s.peer); err != nil {
			s.log.Warnw("send END", "attempt", attempt, "err", err)
		}
		if err := s.conn.SetReadTimeout(s.cfg.RTO()); err != nil {
			return err
		}
		n, _, err := s.conn.ReadFrom(s.ackBuf)
		if err == nil {
			if h, derr := DecodeHeader(s.ackBuf[:n]); derr == nil && h.Type == TypeACK {
				s.log.Infow("end acked", "total_segs", s.totalSegs)
				return nil
			}
		}
	}
	return &HandshakeFailed{Phase: "END"}
}

// Base returns the smallest unacked sequence number (invariant 1).
func (s *Sender) Base() uint32 { return s.base }

// NextToSend returns the next sequence number the sender will transmit.
func (s *Sender) NextToSend() uint32 { return s.nextSeq }

// TotalSegs returns the total segment count derived from the source size.
func (s *Sender) TotalSegs() uint32 { return s.totalSegs }

// ID returns the sender's log correlation ID.
func (s *Sender) ID() string { return s.id }
