// Package wire implements the length-prefixed, field-numbered binary framing
// at the core's boundary (spec §6.1, §6.2): the order wire record (ingress)
// and the book-top wire record (egress). Field encoding is a minimal,
// hand-rolled protobuf-shaped tag/varint scheme — tag = (field<<3|wireType),
// varint and fixed64 payloads, unknown tags skipped on read. This keeps the
// "variable-length integers, ascending field number, stable across versions"
// requirement from spec §6.1 without a code-generation step, in the same
// spirit as the teacher's own internal/net/messages.go, which hand-rolls its
// header with encoding/binary rather than pulling in a protobuf runtime.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	wireVarint = 0
	wireFixed64 = 1
	wireBytes  = 2
)

var (
	// ErrTruncated is returned when a buffer ends before a field's declared
	// length is satisfied.
	ErrTruncated = errors.New("wire: truncated buffer")
	// ErrMalformedTag is returned when a varint tag cannot be decoded.
	ErrMalformedTag = errors.New("wire: malformed tag")
)

func tag(field, wireType int) uint64 {
	return uint64(field)<<3 | uint64(wireType)
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendTag(buf []byte, field, wireType int) []byte {
	return appendVarint(buf, tag(field, wireType))
}

func appendZigzag32(buf []byte, field int, v int32) []byte {
	buf = appendTag(buf, field, wireVarint)
	zz := uint64(uint32((v << 1) ^ (v >> 31)))
	return appendVarint(buf, zz)
}

func appendUint(buf []byte, field int, v uint64) []byte {
	buf = appendTag(buf, field, wireVarint)
	return appendVarint(buf, v)
}

func appendFixed64(buf []byte, field int, bits uint64) []byte {
	buf = appendTag(buf, field, wireFixed64)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], bits)
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, field int, v float64) []byte {
	return appendFixed64(buf, field, math.Float64bits(v))
}

func appendBytes(buf []byte, field int, v []byte) []byte {
	buf = appendTag(buf, field, wireBytes)
	buf = appendVarint(buf, uint64(len(v)))
	return append(buf, v...)
}

func appendString(buf []byte, field int, v string) []byte {
	return appendBytes(buf, field, []byte(v))
}

// reader walks a tag/value buffer left to right.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) done() bool { return r.pos >= len(r.buf) }

func (r *reader) readVarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, ErrMalformedTag
	}
	r.pos += n
	return v, nil
}

func (r *reader) readTag() (field, wireType int, err error) {
	t, err := r.readVarint()
	if err != nil {
		return 0, 0, err
	}
	return int(t >> 3), int(t & 0x7), nil
}

func (r *reader) readFixed64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readVarint()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, ErrTruncated
	}
	v := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return v, nil
}

// skip discards the value for wireType without interpreting it, so unknown
// future fields never break decoding of a known message.
func (r *reader) skip(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := r.readVarint()
		return err
	case wireFixed64:
		_, err := r.readFixed64()
		return err
	case wireBytes:
		_, err := r.readBytes()
		return err
	default:
		return ErrMalformedTag
	}
}

func zigzagDecode32(v uint64) int32 {
	u := uint32(v)
	return int32(u>>1) ^ -int32(u&1)
}

// PutLengthPrefixed frames payload with a 4-byte little-endian length
// prefix, matching the shared-memory slot protocol's length field (spec
// §6.3). Neither transport calls it: Slot writes its own prefix and the
// message-bus transport sends records unframed.
func PutLengthPrefixed(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}
