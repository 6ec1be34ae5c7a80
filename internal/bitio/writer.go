package bitio

import "encoding/binary"

// Writer accumulates a bit sequence in the layout expected by Reader.
type Writer struct {
	bits []byte
}

// NewWriter creates a Writer with room for expectedBits bits.
func NewWriter(expectedBits int) *Writer {
	if expectedBits < 0 {
		expectedBits = 0
	}
	return &Writer{bits: make([]byte, 0, expectedBits)}
}

// WriteBit appends the low bit of b.
func (w *Writer) WriteBit(b byte) {
	w.bits = append(w.bits, b&1)
}

// WriteBytes appends eight bits per byte, most significant bit first.
func (w *Writer) WriteBytes(p []byte) {
	for _, v := range p {
		for shift := 7; shift >= 0; shift-- {
			w.bits = append(w.bits, (v>>uint(shift))&1)
		}
	}
}

// WriteUint32BE appends v as four big-endian bytes.
func (w *Writer) WriteUint32BE(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.WriteBytes(buf[:])
}

// Len returns the number of bits written.
func (w *Writer) Len() int { return len(w.bits) }

// Bits returns the accumulated sequence. The slice aliases the writer's
// buffer until the next write.
func (w *Writer) Bits() []byte { return w.bits }
