package container

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// encodePNG encodes a small NRGBA image with the standard library encoder.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 200})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestTagString(t *testing.T) {
	tests := []struct {
		tag  uint32
		want string
	}{
		{TagIHDR, "IHDR"},
		{TagIEND, "IEND"},
		{TagTEXt, "tEXt"},
		{TagITXt, "iTXt"},
		{TagZTXt, "zTXt"},
	}
	for _, tt := range tests {
		if got := TagString(tt.tag); got != tt.want {
			t.Errorf("TagString(0x%08x) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestIsAncillary(t *testing.T) {
	if IsAncillary(TagIHDR) {
		t.Error("IHDR reported ancillary")
	}
	if !IsAncillary(TagTEXt) {
		t.Error("tEXt reported critical")
	}
}

func TestCheckSignature(t *testing.T) {
	if err := CheckSignature([]byte{0x89, 'P'}); err != ErrTruncated {
		t.Fatalf("short: got %v, want ErrTruncated", err)
	}
	if err := CheckSignature([]byte("GIF89a\x00\x00")); err != ErrInvalidSignature {
		t.Fatalf("gif: got %v, want ErrInvalidSignature", err)
	}
	if err := CheckSignature([]byte(Signature)); err != nil {
		t.Fatalf("valid: %v", err)
	}
}

func TestReadChunkHeader(t *testing.T) {
	data := make([]byte, 8)
	PutBE32(data[0:4], 42)
	PutBE32(data[4:8], TagTEXt)

	tag, length, err := ReadChunkHeader(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != TagTEXt {
		t.Fatalf("tag = %s, want tEXt", TagString(tag))
	}
	if length != 42 {
		t.Fatalf("length = %d, want 42", length)
	}

	PutBE32(data[0:4], 1<<31)
	if _, _, err := ReadChunkHeader(data); err != ErrTooLarge {
		t.Fatalf("oversized: got %v, want ErrTooLarge", err)
	}
}

func TestAppendChunk_ReadChunk(t *testing.T) {
	payload := []byte("Author\x00Alice")
	data := AppendChunk(nil, TagTEXt, payload)
	if len(data) != ChunkHeaderSize+len(payload)+CRCSize {
		t.Fatalf("serialized length = %d", len(data))
	}

	c, n, err := ReadChunk(data)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed %d, want %d", n, len(data))
	}
	if c.Name() != "tEXt" || !bytes.Equal(c.Payload, payload) {
		t.Errorf("got %s %q", c.Name(), c.Payload)
	}
}

func TestReadChunk_BadCRC(t *testing.T) {
	data := AppendChunk(nil, TagTEXt, []byte("k\x00v"))
	data[len(data)-1] ^= 0xFF
	if _, _, err := ReadChunk(data); !errors.Is(err, ErrBadCRC) {
		t.Fatalf("got %v, want ErrBadCRC", err)
	}
}

func TestReadChunk_Truncated(t *testing.T) {
	data := AppendChunk(nil, TagTEXt, []byte("k\x00value"))
	if _, _, err := ReadChunk(data[:len(data)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestParser_StandardLibraryPNG(t *testing.T) {
	data := encodePNG(t, 5, 3)

	p, err := NewParser(data)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	h := p.Header()
	if h.Width != 5 || h.Height != 3 {
		t.Fatalf("dimensions = %dx%d, want 5x3", h.Width, h.Height)
	}
	if !h.HasAlpha() {
		t.Errorf("color type %d: expected alpha", h.ColorType)
	}
	chunks := p.Chunks()
	if chunks[0].Tag != TagIHDR {
		t.Errorf("first chunk = %s, want IHDR", chunks[0].Name())
	}
	if chunks[len(chunks)-1].Tag != TagIEND {
		t.Errorf("last chunk = %s, want IEND", chunks[len(chunks)-1].Name())
	}
	if len(p.ChunksOf(TagIDAT)) == 0 {
		t.Error("no IDAT chunks")
	}
	if len(p.ChunksOf(TagTEXt, TagITXt)) != 0 {
		t.Error("unexpected text chunks")
	}
}

func TestParser_MissingIEND(t *testing.T) {
	data := encodePNG(t, 2, 2)
	// Drop the 12-byte IEND chunk.
	if _, err := NewParser(data[:len(data)-12]); err != ErrNoIEND {
		t.Fatalf("got %v, want ErrNoIEND", err)
	}
}

func TestParser_TrailingGarbageIgnored(t *testing.T) {
	data := encodePNG(t, 2, 2)
	data = append(data, "trailing junk"...)
	if _, err := NewParser(data); err != nil {
		t.Fatalf("NewParser: %v", err)
	}
}

func TestParser_InvalidIHDR(t *testing.T) {
	data := []byte(Signature)
	data = AppendChunk(data, TagIHDR, make([]byte, IHDRSize))
	data = AppendChunk(data, TagIEND, nil)
	if _, err := NewParser(data); !errors.Is(err, ErrInvalidIHDR) {
		t.Fatalf("got %v, want ErrInvalidIHDR", err)
	}
}

func TestParser_ManyChunks(t *testing.T) {
	p, err := NewParser(encodePNG(t, 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	const extra = 70000
	out := []byte(Signature)
	for _, c := range p.Chunks() {
		if c.Tag == TagIEND {
			pad := Tag('p', 'r', 'V', 't')
			for i := 0; i < extra; i++ {
				out = AppendChunk(out, pad, nil)
			}
			out = AppendChunk(out, TagTEXt, []byte("Author\x00Alice"))
		}
		out = AppendChunk(out, c.Tag, c.Payload)
	}

	p, err = NewParser(out)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	texts := p.ChunksOf(TagTEXt)
	if len(texts) != 1 || string(texts[0].Payload) != "Author\x00Alice" {
		t.Fatalf("tEXt after %d chunks: %+v", extra, texts)
	}
	if n := len(p.Chunks()); n < extra+3 {
		t.Errorf("parsed %d chunks", n)
	}
}
