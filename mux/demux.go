package mux

import (
	"errors"
	"fmt"

	"github.com/deepteams/pnginfo/internal/container"
)

// Header describes the image declared by the IHDR chunk.
type Header = container.Header

// Demuxer parses a PNG chunk stream.
type Demuxer struct {
	header Header
	chunks []Chunk
}

// NewDemuxer parses a PNG file from data and returns a Demuxer. The
// signature, every chunk CRC and the terminating IEND are checked.
func NewDemuxer(data []byte) (*Demuxer, error) {
	p, err := container.NewParser(data)
	if err != nil {
		return nil, err
	}
	d := &Demuxer{header: p.Header()}
	for _, c := range p.Chunks() {
		d.chunks = append(d.chunks, Chunk{ID: c.Tag, Size: uint32(len(c.Payload)), Data: c.Payload})
	}
	return d, nil
}

// Header returns the IHDR fields.
func (d *Demuxer) Header() Header { return d.header }

// Chunks returns all chunks in stream order.
func (d *Demuxer) Chunks() []Chunk { return d.chunks }

// GetChunk returns the payload of the first chunk with the given id.
func (d *Demuxer) GetChunk(id ChunkID) ([]byte, error) {
	for _, c := range d.chunks {
		if c.ID == id {
			return c.Data, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, container.TagString(id))
}

// TextChunks decodes every tEXt, zTXt and iTXt chunk. Chunks that fail to
// decode are skipped; the first such error is returned alongside the
// chunks that did decode.
func (d *Demuxer) TextChunks() ([]TextChunk, error) {
	var (
		out      []TextChunk
		firstErr error
	)
	for _, c := range d.chunks {
		if c.ID != TagTEXt && c.ID != TagZTXt && c.ID != TagITXt {
			continue
		}
		tc, err := DecodeTextChunk(c.ID, c.Data)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, tc)
	}
	return out, firstErr
}

// Metadata returns the flat keyword map built from tEXt and iTXt chunks.
// Later chunks overwrite earlier ones with the same key. zTXt chunks are
// not part of the flat map. A tEXt chunk with a NUL inside its text fails
// the whole call with ErrInvalidText.
func (d *Demuxer) Metadata() (map[string]string, error) {
	out := make(map[string]string)
	for _, c := range d.chunks {
		if c.ID != TagTEXt && c.ID != TagITXt {
			continue
		}
		k, v, err := decodeLegacy(c.ID, c.Data)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Metadata extracts the flat keyword map from a PNG byte stream.
//
// When the chunk stream itself cannot be extracted (not a PNG, bad CRC,
// truncated, no IEND) an empty map is returned together with an error
// wrapping ErrNoChunks, so callers may fall back to other sources.
func Metadata(data []byte) (map[string]string, error) {
	d, err := NewDemuxer(data)
	if err != nil {
		return map[string]string{}, errors.Join(ErrNoChunks, err)
	}
	return d.Metadata()
}

// ErrNoChunks reports that no chunk stream could be extracted.
var ErrNoChunks = errors.New("mux: chunk stream not extractable")
