package frftp

// ipUDPOverhead is the conservative IPv4+UDP overhead estimate used to
// derive payload_max from MTU, per spec §6.
const ipUDPOverhead = 28

// minPayload is the floor payload_max never drops below, per spec §6.
const minPayload = 512

// payloadMax derives P = max(512, MTU - 28 - 7) for the given MTU.
func payloadMax(mtu int) int {
	p := mtu - ipUDPOverhead - HeaderSize
	if p < minPayload {
		p = minPayload
	}
	return p
}

// totalSegments computes ceil(fileSize / payloadMax).
func totalSegments(fileSize uint64, payloadMax int) uint32 {
	if fileSize == 0 {
		return 0
	}
	p := uint64(payloadMax)
	return uint32((fileSize + p - 1) / p)
}

// segmentOffset returns the byte offset in the source/sink at which
// segment seq (1-based) begins.
func segmentOffset(seq uint32, payloadMax int) uint64 {
	return uint64(seq-1) * uint64(payloadMax)
}

// segmentLen returns the payload length for segment seq: P for every
// segment but the last, which carries fileSize - (totalSegs-1)*P.
func segmentLen(seq uint32, fileSize uint64, payloadMax int) uint16 {
	off := segmentOffset(seq, payloadMax)
	remaining := fileSize - off
	if remaining > uint64(payloadMax) {
		return uint16(payloadMax)
	}
	return uint16(remaining)
}
