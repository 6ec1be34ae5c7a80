// Package stealth reads and writes the "stealth_pngcomp" watermark: a
// gzip-compressed JSON document hidden one bit per pixel in the least
// significant bit of the alpha channel.
//
// Wire layout, in bit order:
//
//	magic   15 bytes  ASCII "stealth_pngcomp"
//	length   4 bytes  big-endian, payload size in bits
//	payload  length/8 bytes of gzip(UTF-8 JSON)
//
// Bytes are packed most significant bit first. Pixels are visited in
// column-major order (ScanOrder).
package stealth

import (
	"errors"
	"image"
)

// Magic marks the start of a watermark.
const Magic = "stealth_pngcomp"

// headerBits is the number of bits taken by the magic and the length field.
const headerBits = (len(Magic) + 4) * 8

// Errors returned by the codec. A missing watermark is not an error; Decode
// reports it through its found result.
var (
	ErrTruncated     = errors.New("stealth: bit stream shorter than declared data")
	ErrDecompress    = errors.New("stealth: payload decompression failed")
	ErrPayloadFormat = errors.New("stealth: payload is not valid UTF-8 JSON")
	ErrCapacity      = errors.New("stealth: image too small for payload")
)

// Order is a pixel traversal order.
type Order int

const (
	ColumnMajor Order = iota // outer loop over x, inner loop over y
	RowMajor                 // outer loop over y, inner loop over x
)

// ScanOrder is the traversal used by the stealth_pngcomp format. Encoder and
// decoder must agree on it; nothing in the format detects a mismatch.
const ScanOrder = ColumnMajor

func (o Order) String() string {
	switch o {
	case ColumnMajor:
		return "column-major"
	case RowMajor:
		return "row-major"
	default:
		return "unknown"
	}
}

// Coord maps flat bit index i to the pixel offset (x, y) inside a w×h
// raster.
func (o Order) Coord(i, w, h int) (x, y int) {
	if o == RowMajor {
		return i % w, i / w
	}
	return i / h, i % h
}

// Index is the inverse of Coord.
func (o Order) Index(x, y, w, h int) int {
	if o == RowMajor {
		return y*w + x
	}
	return x*h + y
}

// Capacity returns the largest JSON-independent payload, in compressed
// bytes, that fits in a w×h raster.
func Capacity(w, h int) int {
	n := (w*h - headerBits) / 8
	if n < 0 {
		return 0
	}
	return n
}

// ExtractAlphaBits returns one bit per pixel, the low bit of the alpha
// channel, in ScanOrder. The result has Dx()*Dy() elements.
func ExtractAlphaBits(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}
	bits := make([]byte, w*h)

	switch src := img.(type) {
	case *image.NRGBA:
		extractPix(bits, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), w, h)
	case *image.RGBA:
		// Premultiplication leaves the alpha byte untouched.
		extractPix(bits, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), w, h)
	default:
		i := 0
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				bits[i] = byte(a>>8) & 1
				i++
			}
		}
	}
	return bits
}

// extractPix reads alpha bytes from an 8-bit RGBA pixel buffer whose
// (0,0) pixel starts at off.
func extractPix(bits, pix []byte, stride, off, w, h int) {
	i := 0
	for x := 0; x < w; x++ {
		p := off + x*4 + 3
		for y := 0; y < h; y++ {
			bits[i] = pix[p] & 1
			p += stride
			i++
		}
	}
}
