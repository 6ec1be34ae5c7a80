// Package mux reads and writes the text metadata of a PNG stream.
//
// The demuxer splits a PNG file into chunks and decodes its tEXt, zTXt and
// iTXt chunks, either structurally or into the flat keyword map consumed by
// metadata readers. The muxer inserts new text chunks into an existing file.
package mux

import (
	"errors"

	"github.com/deepteams/pnginfo/internal/container"
)

// ChunkID is a PNG chunk type tag.
type ChunkID = uint32

// Chunk type tags re-exported from the container package.
var (
	TagIHDR = container.TagIHDR
	TagIDAT = container.TagIDAT
	TagIEND = container.TagIEND
	TagTEXt = container.TagTEXt
	TagZTXt = container.TagZTXt
	TagITXt = container.TagITXt
	TagEXIf = container.TagEXIf
)

// Chunk represents a single chunk in a PNG stream.
// Data is a sub-slice of the original input (zero-copy).
type Chunk struct {
	ID   ChunkID
	Size uint32
	Data []byte
}

// Name returns the four-character chunk type.
func (c Chunk) Name() string { return container.TagString(c.ID) }

var (
	ErrInvalidText   = errors.New("mux: malformed text chunk")
	ErrInvalidKey    = errors.New("mux: invalid text keyword")
	ErrChunkNotFound = errors.New("mux: chunk not found")
	ErrTextTooLarge  = errors.New("mux: decompressed text too large")
)

// ReadChunk reads one chunk (with CRC check) from data and returns the
// chunk plus the number of bytes consumed.
func ReadChunk(data []byte) (Chunk, int, error) {
	c, n, err := container.ReadChunk(data)
	if err != nil {
		return Chunk{}, 0, err
	}
	return Chunk{ID: c.Tag, Size: uint32(len(c.Payload)), Data: c.Payload}, n, nil
}
