package frftp

import (
	"testing"
	"time"

	"github.com/frftp-project/frftp/ioadapt"
)

func TestReceiverAcceptsStartAndRepliesIdempotently(t *testing.T) {
	a, b := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := EncodeStart(nil, 10)
	r.handleDatagram(start, fakeAddr("sender"))
	if !r.started || r.TotalSegs() != 1 {
		t.Fatalf("started=%v totalSegs=%d", r.started, r.TotalSegs())
	}

	// Duplicate START must not reset state.
	r.cumAck = 1
	r.handleDatagram(start, fakeAddr("sender"))
	if r.cumAck != 1 {
		t.Fatalf("duplicate START reset cum_ack to %d", r.cumAck)
	}
	_ = b
}

func TestReceiverDataWritesAtOffsetAndAdvancesCumAck(t *testing.T) {
	a, _ := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("0123456789")
	r.handleDatagram(EncodeStart(nil, uint64(len(payload))), fakeAddr("sender"))

	r.handleDatagram(EncodeData(nil, 1, payload), fakeAddr("sender"))
	if r.CumAck() != 1 {
		t.Fatalf("cum_ack = %d, want 1", r.CumAck())
	}
	if string(sink.Bytes()) != string(payload) {
		t.Fatalf("sink = %q, want %q", sink.Bytes(), payload)
	}
}

func TestReceiverDuplicateDataLeavesSinkUnchangedAndAcksIdentically(t *testing.T) {
	a, b := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("hello!!!")
	r.handleDatagram(EncodeStart(nil, uint64(len(payload))), fakeAddr("sender"))

	recvAck := func() AckPayload {
		buf := make([]byte, 64)
		b.SetReadTimeout(time.Second)
		n, _, err := b.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read ack: %v", err)
		}
		ap, err := DecodeAck(buf[:n])
		if err != nil {
			t.Fatalf("decode ack: %v", err)
		}
		return ap
	}
	_ = recvAck() // START-ACK

	r.handleDatagram(EncodeData(nil, 1, payload), fakeAddr("sender"))
	first := recvAck()

	before := append([]byte(nil), sink.Bytes()...)
	r.handleDatagram(EncodeData(nil, 1, payload), fakeAddr("sender"))
	second := recvAck()

	if string(sink.Bytes()) != string(before) {
		t.Fatal("duplicate DATA changed sink contents")
	}
	if first != second {
		t.Fatalf("ack mismatch on duplicate: %+v vs %+v", first, second)
	}
}

func TestReceiverOversizeDataIsDroppedNotAcked(t *testing.T) {
	a, b := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.handleDatagram(EncodeStart(nil, 100000), fakeAddr("sender"))

	buf := make([]byte, 64)
	b.SetReadTimeout(50 * time.Millisecond)
	b.ReadFrom(buf) // drain the START-ACK

	oversized := make([]byte, r.payloadMax+1)
	frame := EncodeData(nil, 1, oversized)
	r.handleDatagram(frame, fakeAddr("sender"))

	b.SetReadTimeout(50 * time.Millisecond)
	if _, _, err := b.ReadFrom(buf); err == nil {
		t.Fatal("expected no ACK for oversize DATA")
	}
	if r.have[1] {
		t.Fatal("oversize DATA should not be marked received")
	}
}

func TestReceiverLocksOntoFirstPeer(t *testing.T) {
	a, _ := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.handleDatagram(EncodeStart(nil, 10), fakeAddr("sender-a"))
	if r.peer.String() != "sender-a" {
		t.Fatalf("peer = %v", r.peer)
	}

	payload := []byte("0123456789")
	r.handleDatagram(EncodeData(nil, 1, payload), fakeAddr("sender-b"))
	if r.CumAck() != 0 {
		t.Fatal("DATA from an off-path address should be ignored")
	}
}

func TestReceiverFinishesOnlyWhenComplete(t *testing.T) {
	a, _ := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.handleDatagram(EncodeStart(nil, 10), fakeAddr("sender"))
	r.handleDatagram(EncodeEnd(nil, 1), fakeAddr("sender"))
	if r.finished {
		t.Fatal("should not finish before all data received")
	}

	r.handleDatagram(EncodeData(nil, 1, []byte("0123456789")), fakeAddr("sender"))
	r.handleDatagram(EncodeEnd(nil, 1), fakeAddr("sender"))
	if !r.finished {
		t.Fatal("should finish once cum_ack == total_segs")
	}
}

func TestSackMaskTruncatesAtTotalSegs(t *testing.T) {
	a, _ := newPipePair("receiver", "sender")
	cfg := testConfig()
	sink := ioadapt.NewMemSink()
	r, err := NewReceiver(a, sink, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.totalSegs = 3
	r.have = make([]bool, 4)
	r.have[3] = true
	r.cumAck = 0
	mask := r.sackMask()
	if mask != (1 << 2) {
		t.Fatalf("mask = %x, want bit 2 set only", mask)
	}
}
