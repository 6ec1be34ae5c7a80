// Package bitio provides the sequential bit cursor used by the stealth
// payload codec.
//
// A bit sequence is a []byte holding one 0/1 value per element, in the order
// the bits were laid into the image. Reader packs groups of eight bits
// most-significant-bit first; Writer is its exact inverse.
package bitio

import (
	"encoding/binary"
	"errors"
)

// ErrOutOfRange is returned when a read needs more bits than remain.
var ErrOutOfRange = errors.New("bitio: read past end of bit sequence")

// Reader is a forward-only cursor over a bit sequence. The cursor never
// moves backwards and a failed read does not advance it.
type Reader struct {
	bits []byte // one bit per element, only the low bit is significant
	pos  int    // index of the next bit to read
}

// NewReader creates a Reader positioned at the first bit of bits.
func NewReader(bits []byte) *Reader {
	return &Reader{bits: bits}
}

// Pos returns the number of bits consumed so far.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total length of the underlying sequence.
func (r *Reader) Len() int { return len(r.bits) }

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int { return len(r.bits) - r.pos }

// ReadBit returns the next bit and advances the cursor by one.
func (r *Reader) ReadBit() (byte, error) {
	if r.pos >= len(r.bits) {
		return 0, ErrOutOfRange
	}
	b := r.bits[r.pos] & 1
	r.pos++
	return b, nil
}

// ReadBits returns the next n bits in sequence order.
func (r *Reader) ReadBits(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, ErrOutOfRange
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = r.bits[r.pos+i] & 1
	}
	r.pos += n
	return out, nil
}

// ReadBytes reads n groups of eight bits. The first bit of each group
// becomes bit 7 of the resulting byte.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining()/8 {
		return nil, ErrOutOfRange
	}
	out := make([]byte, n)
	src := r.bits[r.pos : r.pos+n*8]
	for i := range out {
		var v byte
		for _, bit := range src[i*8 : i*8+8] {
			v = v<<1 | bit&1
		}
		out[i] = v
	}
	r.pos += n * 8
	return out, nil
}

// ReadUint32BE reads four bytes and interprets them as a big-endian
// unsigned integer.
func (r *Reader) ReadUint32BE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
