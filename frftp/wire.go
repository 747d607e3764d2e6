package frftp

import "encoding/binary"

// Packet types (1 byte on the wire). See spec §3/§6.
const (
	TypeDATA  byte = 0x01
	TypeSTART byte = 0x02
	TypeEND   byte = 0x03
	TypeACK   byte = 0x10
)

// HeaderSize is the fixed, packed wire header size: type(1) + seq(4) + len(2).
const HeaderSize = 7

// StartPayloadSize is the size of the START frame's payload (file size, u64 BE).
const StartPayloadSize = 8

// AckPayloadSize is the size of the ACK frame's payload (cum_ack u32 BE + sack_mask u64 BE).
const AckPayloadSize = 12

// Header is the 7-byte fixed frame header, decoded into value form.
// Multi-byte fields are big-endian on the wire; Header itself holds
// them as native Go integers.
type Header struct {
	Type byte
	Seq  uint32
	Len  uint16
}

// EncodeHeader writes h into the first HeaderSize bytes of dst.
// dst must be at least HeaderSize bytes long.
func EncodeHeader(dst []byte, h Header) {
	dst[0] = h.Type
	binary.BigEndian.PutUint32(dst[1:5], h.Seq)
	binary.BigEndian.PutUint16(dst[5:7], h.Len)
}

// DecodeHeader reads a Header from the first HeaderSize bytes of src.
// It rejects any frame shorter than HeaderSize or whose declared Len
// would run past the rest of src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, &MalformedFrame{Reason: "frame shorter than header"}
	}
	h := Header{
		Type: src[0],
		Seq:  binary.BigEndian.Uint32(src[1:5]),
		Len:  binary.BigEndian.Uint16(src[5:7]),
	}
	if int(h.Len) > len(src)-HeaderSize {
		return Header{}, &MalformedFrame{Reason: "declared len exceeds buffer"}
	}
	return h, nil
}

// EncodeStart serializes a START frame (type=0x02, seq=0, len=8) with
// fileSize as its big-endian u64 payload.
func EncodeStart(dst []byte, fileSize uint64) []byte {
	dst = growTo(dst, HeaderSize+StartPayloadSize)
	EncodeHeader(dst, Header{Type: TypeSTART, Seq: 0, Len: StartPayloadSize})
	binary.BigEndian.PutUint64(dst[HeaderSize:HeaderSize+StartPayloadSize], fileSize)
	return dst[:HeaderSize+StartPayloadSize]
}

// DecodeStart validates that src is a well-formed START frame and
// returns the negotiated file size.
func DecodeStart(src []byte) (uint64, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return 0, err
	}
	if h.Type != TypeSTART || h.Seq != 0 || h.Len != StartPayloadSize {
		return 0, &MalformedFrame{Reason: "not a valid START frame"}
	}
	return binary.BigEndian.Uint64(src[HeaderSize : HeaderSize+StartPayloadSize]), nil
}

// EncodeData serializes a DATA frame for segment seq carrying payload.
// Callers must ensure 1 <= len(payload) <= payload_max per spec invariant 4.
func EncodeData(dst []byte, seq uint32, payload []byte) []byte {
	total := HeaderSize + len(payload)
	dst = growTo(dst, total)
	EncodeHeader(dst, Header{Type: TypeDATA, Seq: seq, Len: uint16(len(payload))})
	copy(dst[HeaderSize:], payload)
	return dst[:total]
}

// DecodeData validates src as a DATA frame and returns its sequence
// number and payload slice (aliasing src).
func DecodeData(src []byte) (seq uint32, payload []byte, err error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return 0, nil, err
	}
	if h.Type != TypeDATA {
		return 0, nil, &MalformedFrame{Reason: "not a DATA frame"}
	}
	return h.Seq, src[HeaderSize : HeaderSize+int(h.Len)], nil
}

// EncodeEnd serializes an END frame (seq = totalSegs+1, len=0, no payload).
func EncodeEnd(dst []byte, totalSegs uint32) []byte {
	dst = growTo(dst, HeaderSize)
	EncodeHeader(dst, Header{Type: TypeEND, Seq: totalSegs + 1, Len: 0})
	return dst[:HeaderSize]
}

// DecodeEnd validates src as an END frame and returns its seq (totalSegs+1).
func DecodeEnd(src []byte) (uint32, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return 0, err
	}
	if h.Type != TypeEND || h.Len != 0 {
		return 0, &MalformedFrame{Reason: "not a valid END frame"}
	}
	return h.Seq, nil
}

// AckPayload is the 12-byte ACK body: cum_ack (u32 BE) ++ sack_mask (u64 BE).
// Bit i of SackMask (0-indexed) signals receipt of CumAck+1+i.
type AckPayload struct {
	CumAck   uint32
	SackMask uint64
}

// EncodeAck serializes an ACK frame (type=0x10, seq=0, len=12).
func EncodeAck(dst []byte, ap AckPayload) []byte {
	total := HeaderSize + AckPayloadSize
	dst = growTo(dst, total)
	EncodeHeader(dst, Header{Type: TypeACK, Seq: 0, Len: AckPayloadSize})
	binary.BigEndian.PutUint32(dst[HeaderSize:HeaderSize+4], ap.CumAck)
	binary.BigEndian.PutUint64(dst[HeaderSize+4:HeaderSize+12], ap.SackMask)
	return dst[:total]
}

// DecodeAck validates src as a well-formed ACK frame (len == 12) and
// returns its payload.
func DecodeAck(src []byte) (AckPayload, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return AckPayload{}, err
	}
	if h.Type != TypeACK || h.Len != AckPayloadSize {
		return AckPayload{}, &MalformedFrame{Reason: "not a valid ACK frame"}
	}
	return AckPayload{
		CumAck:   binary.BigEndian.Uint32(src[HeaderSize : HeaderSize+4]),
		SackMask: binary.BigEndian.Uint64(src[HeaderSize+4 : HeaderSize+12]),
	}, nil
}

func growTo(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
