package frftp

import "testing"

func TestPayloadMaxFloor(t *testing.T) {
	// 540 - 28 - 7 = 505, below the floor.
	if got := payloadMax(540); got != minPayload {
		t.Fatalf("got %d want %d", got, minPayload)
	}
}

func TestPayloadMaxTypical(t *testing.T) {
	got := payloadMax(1500)
	want := 1500 - ipUDPOverhead - HeaderSize
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestTotalSegmentsExactMultiple(t *testing.T) {
	p := payloadMax(1500)
	if got := totalSegments(uint64(p), p); got != 1 {
		t.Fatalf("file size == payload_max: got %d segs, want 1", got)
	}
}

func TestTotalSegmentsOneByteOver(t *testing.T) {
	p := payloadMax(1500)
	k := uint64(3)
	size := k*uint64(p) + 1
	got := totalSegments(size, p)
	if got != uint32(k)+1 {
		t.Fatalf("got %d segs, want %d", got, k+1)
	}
	lastLen := segmentLen(got, size, p)
	if lastLen != 1 {
		t.Fatalf("last segment len = %d, want 1", lastLen)
	}
}

func TestSegmentOffsetsNonOverlapping(t *testing.T) {
	p := payloadMax(1500)
	size := uint64(p)*5 + 37
	total := totalSegments(size, p)
	var covered uint64
	for seq := uint32(1); seq <= total; seq++ {
		off := segmentOffset(seq, p)
		if off != covered {
			t.Fatalf("seq %d: offset %d, want %d", seq, off, covered)
		}
		covered += uint64(segmentLen(seq, size, p))
	}
	if covered != size {
		t.Fatalf("covered %d bytes, want %d", covered, size)
	}
}

func TestTotalSegsSingleSegmentValid(t *testing.T) {
	p := payloadMax(1500)
	if got := totalSegments(10, p); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
}
