// Package container defines constants and low-level readers for the PNG
// chunk stream: the file signature, chunk type tags, header sizes and the
// CRC rule.
package container

import (
	"encoding/binary"
	"hash/crc32"
)

// Signature is the eight-byte PNG file signature.
const Signature = "\x89PNG\r\n\x1a\n"

// Tag creates a chunk type value from four bytes (big-endian, as stored).
func Tag(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// Chunk type tags.
var (
	TagIHDR = Tag('I', 'H', 'D', 'R')
	TagPLTE = Tag('P', 'L', 'T', 'E')
	TagIDAT = Tag('I', 'D', 'A', 'T')
	TagIEND = Tag('I', 'E', 'N', 'D')
	TagTEXt = Tag('t', 'E', 'X', 't')
	TagZTXt = Tag('z', 'T', 'X', 't')
	TagITXt = Tag('i', 'T', 'X', 't')
	TagEXIf = Tag('e', 'X', 'I', 'f')
)

// Stream structure sizes.
const (
	SignatureSize   = 8  // PNG signature
	TagSize         = 4  // chunk type
	LengthSize      = 4  // chunk length field
	ChunkHeaderSize = 8  // length + type
	CRCSize         = 4  // trailing CRC-32
	IHDRSize        = 13 // IHDR payload
)

// MaxChunkLength is the largest chunk length the PNG format allows.
const MaxChunkLength = 1<<31 - 1

// TagString returns the four-character name of a chunk type.
func TagString(tag uint32) string {
	b := [4]byte{
		byte(tag >> 24),
		byte(tag >> 16),
		byte(tag >> 8),
		byte(tag),
	}
	return string(b[:])
}

// IsAncillary reports whether the chunk type has the ancillary bit set.
func IsAncillary(tag uint32) bool {
	return byte(tag>>24)&0x20 != 0
}

// ChunkCRC computes the CRC-32 stored after a chunk; it covers the type
// and the payload but not the length.
func ChunkCRC(tag uint32, payload []byte) uint32 {
	var t [TagSize]byte
	binary.BigEndian.PutUint32(t[:], tag)
	crc := crc32.Update(0, crc32.IEEETable, t[:])
	return crc32.Update(crc, crc32.IEEETable, payload)
}

// ReadBE32 reads a big-endian uint32 from data.
func ReadBE32(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}

// PutBE32 writes a big-endian uint32 to data.
func PutBE32(data []byte, v uint32) {
	binary.BigEndian.PutUint32(data, v)
}
