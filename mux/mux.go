package mux

import (
	"fmt"

	"github.com/deepteams/pnginfo/internal/container"
)

// Muxer rebuilds a PNG stream with additional text chunks.
type Muxer struct {
	d       *Demuxer
	pending []pendingChunk
}

// pendingChunk is either a text chunk still to be encoded or a raw chunk.
type pendingChunk struct {
	text *TextChunk
	raw  Chunk
}

// NewMuxer creates a Muxer over an existing PNG file.
func NewMuxer(data []byte) (*Muxer, error) {
	d, err := NewDemuxer(data)
	if err != nil {
		return nil, err
	}
	return &Muxer{d: d}, nil
}

// AddText queues a text chunk to be written.
func (m *Muxer) AddText(tc TextChunk) {
	m.pending = append(m.pending, pendingChunk{text: &tc})
}

// AddChunk queues a chunk whose payload is written as is.
func (m *Muxer) AddChunk(id ChunkID, data []byte) {
	m.pending = append(m.pending, pendingChunk{raw: Chunk{ID: id, Size: uint32(len(data)), Data: data}})
}

// Assemble returns the PNG stream with all queued chunks placed
// immediately before IEND, in the order they were added. Existing chunks
// are copied unchanged.
func (m *Muxer) Assemble() ([]byte, error) {
	encoded := make([]Chunk, 0, len(m.pending))
	size := container.SignatureSize
	for i, p := range m.pending {
		c := p.raw
		if p.text != nil {
			id, payload, err := EncodeTextChunk(*p.text)
			if err != nil {
				return nil, fmt.Errorf("text chunk %d: %w", i, err)
			}
			c = Chunk{ID: id, Size: uint32(len(payload)), Data: payload}
		}
		encoded = append(encoded, c)
		size += container.ChunkHeaderSize + len(c.Data) + container.CRCSize
	}
	for _, c := range m.d.chunks {
		size += container.ChunkHeaderSize + len(c.Data) + container.CRCSize
	}

	out := make([]byte, 0, size)
	out = append(out, container.Signature...)
	for _, c := range m.d.chunks {
		if c.ID == TagIEND {
			for _, t := range encoded {
				out = container.AppendChunk(out, t.ID, t.Data)
			}
		}
		out = container.AppendChunk(out, c.ID, c.Data)
	}
	return out, nil
}

// InsertText is a convenience wrapper returning data with the given text
// chunks added before IEND.
func InsertText(data []byte, texts ...TextChunk) ([]byte, error) {
	m, err := NewMuxer(data)
	if err != nil {
		return nil, err
	}
	for _, tc := range texts {
		m.AddText(tc)
	}
	return m.Assemble()
}
