package stealth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/deepteams/pnginfo/internal/bitio"
	"github.com/deepteams/pnginfo/internal/pool"
)

// DefaultMaxInflatedSize caps the decompressed payload when a Decoder does
// not set its own limit.
const DefaultMaxInflatedSize = 64 << 20

// Payload is a decoded watermark.
type Payload struct {
	// JSON is the decompressed UTF-8 document.
	JSON []byte
	// Value is JSON parsed with encoding/json into an arbitrary value.
	Value any
	// Bits is the declared payload length in bits.
	Bits uint32
}

// Decoder reads watermarks. The zero value is ready to use.
type Decoder struct {
	// MaxInflatedSize limits the decompressed payload size in bytes.
	// Zero means DefaultMaxInflatedSize.
	MaxInflatedSize int64
}

// Decode reads a watermark from img using a zero Decoder.
func Decode(img image.Image) (*Payload, bool, error) {
	var d Decoder
	return d.Decode(img)
}

// Decode extracts the alpha bit plane of img and decodes the watermark in
// it. found is false, with a nil error, when the magic does not match.
func (d *Decoder) Decode(img image.Image) (p *Payload, found bool, err error) {
	return d.DecodeBits(ExtractAlphaBits(img))
}

// DecodeBits decodes a watermark from an already extracted bit sequence.
func (d *Decoder) DecodeBits(bits []byte) (*Payload, bool, error) {
	br := bitio.NewReader(bits)

	magic, err := br.ReadBytes(len(Magic))
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading magic: %v", ErrTruncated, err)
	}
	if string(magic) != Magic {
		return nil, false, nil
	}

	length, err := br.ReadUint32BE()
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading length: %v", ErrTruncated, err)
	}
	if length%8 != 0 {
		return nil, true, fmt.Errorf("%w: length %d bits is not byte aligned", ErrPayloadFormat, length)
	}
	if int64(length) > int64(br.Remaining()) {
		return nil, true, fmt.Errorf("%w: need %d bits, have %d", ErrTruncated, length, br.Remaining())
	}
	compressed, err := br.ReadBytes(int(length / 8))
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading payload: %v", ErrTruncated, err)
	}

	text, err := d.inflate(compressed)
	if err != nil {
		return nil, true, err
	}
	if !utf8.Valid(text) {
		return nil, true, fmt.Errorf("%w: invalid UTF-8", ErrPayloadFormat)
	}
	var v any
	if err := json.Unmarshal(text, &v); err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrPayloadFormat, err)
	}
	return &Payload{JSON: text, Value: v, Bits: length}, true, nil
}

func (d *Decoder) inflate(data []byte) ([]byte, error) {
	limit := d.MaxInflatedSize
	if limit <= 0 {
		limit = DefaultMaxInflatedSize
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer zr.Close()

	var out bytes.Buffer
	buf := pool.Get(pool.Size32K)
	defer pool.Put(buf)
	lr := io.LimitReader(zr, limit+1)
	for {
		n, err := lr.Read(buf)
		out.Write(buf[:n])
		if int64(out.Len()) > limit {
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrDecompress, limit)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
	}
	return out.Bytes(), nil
}

// IsFormatError reports whether err came from a watermark that was present
// but could not be decoded.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrTruncated) || errors.Is(err, ErrDecompress) || errors.Is(err, ErrPayloadFormat)
}
