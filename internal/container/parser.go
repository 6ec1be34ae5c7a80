package container

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidSignature = errors.New("png: invalid signature")
	ErrTruncated        = errors.New("png: truncated data")
	ErrBadCRC           = errors.New("png: chunk CRC mismatch")
	ErrTooLarge         = errors.New("png: chunk too large")
	ErrNoIEND           = errors.New("png: no IEND chunk found")
	ErrInvalidIHDR      = errors.New("png: invalid IHDR chunk")
)

// Chunk is a single PNG chunk. Payload is a sub-slice of the parsed input.
type Chunk struct {
	Tag     uint32
	Payload []byte
	CRC     uint32
}

// Name returns the four-character chunk type.
func (c Chunk) Name() string { return TagString(c.Tag) }

// Header holds the fields of the IHDR chunk.
type Header struct {
	Width     int
	Height    int
	BitDepth  int
	ColorType int
	Interlace int
}

// HasAlpha reports whether the colour type carries an alpha channel.
// Transparency supplied by a tRNS chunk is not reflected here.
func (h Header) HasAlpha() bool {
	return h.ColorType == 4 || h.ColorType == 6
}

// Parser splits a complete PNG byte stream into chunks, validating the
// signature, every CRC, and the presence of IEND.
type Parser struct {
	header Header
	chunks []Chunk
}

// NewParser creates a parser and immediately parses data.
func NewParser(data []byte) (*Parser, error) {
	p := &Parser{}
	if err := p.parse(data); err != nil {
		return nil, err
	}
	return p, nil
}

// Header returns the parsed IHDR fields (zero if IHDR was absent).
func (p *Parser) Header() Header { return p.header }

// Chunks returns every chunk in stream order, IEND included.
func (p *Parser) Chunks() []Chunk { return p.chunks }

// ChunksOf returns the chunks whose type is one of tags, in stream order.
func (p *Parser) ChunksOf(tags ...uint32) []Chunk {
	var out []Chunk
	for _, c := range p.chunks {
		for _, t := range tags {
			if c.Tag == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (p *Parser) parse(data []byte) error {
	if err := CheckSignature(data); err != nil {
		return err
	}
	buf := data[SignatureSize:]
	for len(buf) > 0 {
		c, n, err := ReadChunk(buf)
		if err != nil {
			return err
		}
		if c.Tag == TagIHDR && len(p.chunks) == 0 {
			h, err := parseIHDR(c.Payload)
			if err != nil {
				return err
			}
			p.header = h
		}
		p.chunks = append(p.chunks, c)
		buf = buf[n:]
		if c.Tag == TagIEND {
			return nil
		}
	}
	return ErrNoIEND
}

// CheckSignature verifies the eight-byte PNG signature at the start of data.
func CheckSignature(data []byte) error {
	if len(data) < SignatureSize {
		return ErrTruncated
	}
	if string(data[:SignatureSize]) != Signature {
		return ErrInvalidSignature
	}
	return nil
}

// ReadChunkHeader reads a chunk's length and type from data.
func ReadChunkHeader(data []byte) (tag uint32, length uint32, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, 0, ErrTruncated
	}
	length = ReadBE32(data[0:4])
	if length > MaxChunkLength {
		return 0, 0, ErrTooLarge
	}
	tag = ReadBE32(data[4:8])
	return tag, length, nil
}

// ReadChunk reads one complete chunk (header, payload, CRC) from data and
// returns it with the number of bytes consumed. The CRC is verified.
func ReadChunk(data []byte) (Chunk, int, error) {
	tag, length, err := ReadChunkHeader(data)
	if err != nil {
		return Chunk{}, 0, err
	}
	end := ChunkHeaderSize + int(length) + CRCSize
	if end > len(data) {
		return Chunk{}, 0, fmt.Errorf("%w: chunk %s needs %d bytes, have %d",
			ErrTruncated, TagString(tag), end, len(data))
	}
	payload := data[ChunkHeaderSize : ChunkHeaderSize+int(length)]
	stored := ReadBE32(data[end-CRCSize : end])
	if got := ChunkCRC(tag, payload); got != stored {
		return Chunk{}, 0, fmt.Errorf("%w: chunk %s stored 0x%08x computed 0x%08x",
			ErrBadCRC, TagString(tag), stored, got)
	}
	return Chunk{Tag: tag, Payload: payload, CRC: stored}, end, nil
}

// AppendChunk appends a serialized chunk with a freshly computed CRC.
func AppendChunk(dst []byte, tag uint32, payload []byte) []byte {
	var hdr [ChunkHeaderSize]byte
	PutBE32(hdr[0:4], uint32(len(payload)))
	PutBE32(hdr[4:8], tag)
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	var crc [CRCSize]byte
	PutBE32(crc[:], ChunkCRC(tag, payload))
	return append(dst, crc[:]...)
}

func parseIHDR(data []byte) (Header, error) {
	if len(data) != IHDRSize {
		return Header{}, ErrInvalidIHDR
	}
	w := ReadBE32(data[0:4])
	h := ReadBE32(data[4:8])
	if w == 0 || h == 0 || w > MaxChunkLength || h > MaxChunkLength {
		return Header{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidIHDR, w, h)
	}
	return Header{
		Width:     int(w),
		Height:    int(h),
		BitDepth:  int(data[8]),
		ColorType: int(data[9]),
		Interlace: int(data[12]),
	}, nil
}
