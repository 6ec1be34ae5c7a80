package stealth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"math"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/image/draw"

	"github.com/deepteams/pnginfo/internal/bitio"
	"github.com/deepteams/pnginfo/internal/pool"
)

// Embed marshals v to JSON and writes it into a copy of img as a
// watermark. HTML characters are not escaped. The source image is not
// modified.
func Embed(img image.Image, v any) (*image.NRGBA, error) {
	var text bytes.Buffer
	enc := json.NewEncoder(&text)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadFormat, err)
	}
	return EmbedJSON(img, bytes.TrimSuffix(text.Bytes(), []byte("\n")))
}

// EmbedJSON writes an already serialized JSON document into a copy of img.
// Pixels beyond the end of the watermark keep their original alpha.
func EmbedJSON(img image.Image, text []byte) (*image.NRGBA, error) {
	if !json.Valid(text) {
		return nil, fmt.Errorf("%w: input is not JSON", ErrPayloadFormat)
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	zw, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(text); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	compressed := buf.Bytes()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if uint64(len(compressed))*8 > math.MaxUint32 || len(compressed) > Capacity(w, h) {
		return nil, fmt.Errorf("%w: %d compressed bytes, room for %d", ErrCapacity, len(compressed), Capacity(w, h))
	}

	bw := bitio.NewWriter(headerBits + len(compressed)*8)
	bw.WriteBytes([]byte(Magic))
	bw.WriteUint32BE(uint32(len(compressed) * 8))
	bw.WriteBytes(compressed)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	writeAlphaBits(dst, bw.Bits())
	return dst, nil
}

// writeAlphaBits replaces the alpha LSB of the first len(bits) pixels, in
// ScanOrder.
func writeAlphaBits(dst *image.NRGBA, bits []byte) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for i, bit := range bits {
		x, y := ScanOrder.Coord(i, w, h)
		off := dst.PixOffset(dst.Rect.Min.X+x, dst.Rect.Min.Y+y) + 3
		dst.Pix[off] = dst.Pix[off]&^1 | bit&1
	}
}
