package pnginfo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"

	// Raster formats that can carry an alpha channel.
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/deepteams/pnginfo/compress"
	"github.com/deepteams/pnginfo/mux"
	"github.com/deepteams/pnginfo/stealth"
)

// Kind identifies where metadata was found.
type Kind int

const (
	KindAbsent  Kind = iota // no metadata
	KindChunks              // PNG text chunks
	KindStealth             // alpha-channel watermark
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindChunks:
		return "chunks"
	case KindStealth:
		return "stealth"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Metadata is the result of GetImageData. Exactly one of Chunks or
// Stealth is set, according to Kind.
type Metadata struct {
	Kind Kind

	// Chunks is the flat keyword map for KindChunks.
	Chunks map[string]string

	// Stealth is the parsed watermark JSON for KindStealth, and Raw the
	// document it was parsed from.
	Stealth any
	Raw     []byte
}

// Absent reports whether no metadata was found.
func (m Metadata) Absent() bool { return m.Kind == KindAbsent }

// Value returns the chunk map, the watermark value, or nil.
func (m Metadata) Value() any {
	switch m.Kind {
	case KindChunks:
		return m.Chunks
	case KindStealth:
		return m.Stealth
	}
	return nil
}

// JSON renders the metadata as a JSON document. Absent metadata renders
// as null. Characters such as '<' and '&' are written as is.
func (m Metadata) JSON() ([]byte, error) {
	var buf bytes.Buffer
	if m.Kind == KindStealth && m.Raw != nil {
		if err := json.Compact(&buf, m.Raw); err == nil {
			return buf.Bytes(), nil
		}
		buf.Reset()
	}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m.Value()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Options configures GetImageData. A nil *Options is valid.
type Options struct {
	// Logger receives the errors that lookup swallows, at debug level.
	// Nil disables logging.
	Logger *slog.Logger

	// DisableStealth skips the watermark lookup.
	DisableStealth bool

	// MaxInflatedSize bounds the decompressed watermark size. Zero means
	// stealth.DefaultMaxInflatedSize.
	MaxInflatedSize int64
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// GetImageData returns the metadata embedded in an encoded image.
//
// Text chunks take priority: if they yield at least one key the raster is
// never decoded. Otherwise the image is decoded and its alpha channel is
// searched for a watermark. Every failure, including a panic in an image
// decoder, results in KindAbsent.
func GetImageData(data []byte, opts *Options) (md Metadata) {
	log := opts.logger()
	defer func() {
		if r := recover(); r != nil {
			log.Debug("metadata lookup panicked", "panic", r)
			md = Metadata{}
		}
	}()

	chunks, err := mux.Metadata(data)
	switch {
	case err == nil && len(chunks) > 0:
		return Metadata{Kind: KindChunks, Chunks: chunks}
	case err != nil && !errors.Is(err, mux.ErrNoChunks):
		log.Debug("text chunks unreadable", "err", err)
		return Metadata{}
	case err != nil:
		log.Debug("no chunk stream", "err", err)
	}

	if opts != nil && opts.DisableStealth {
		return Metadata{}
	}
	log.Debug("stealth lookup", "bytes", len(data))
	p, err := readStealth(data, opts)
	if err != nil {
		log.Debug("stealth lookup failed", "err", err)
		return Metadata{}
	}
	if p == nil {
		log.Debug("no stealth watermark")
		return Metadata{}
	}
	return Metadata{Kind: KindStealth, Stealth: p.Value, Raw: p.JSON}
}

func readStealth(data []byte, opts *Options) (*stealth.Payload, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding raster: %w", err)
	}
	d := stealth.Decoder{}
	if opts != nil {
		d.MaxInflatedSize = opts.MaxInflatedSize
	}
	p, found, err := d.Decode(img)
	if err != nil {
		return nil, fmt.Errorf("%s raster: %w", format, err)
	}
	if !found {
		return nil, nil
	}
	return p, nil
}

// Compress re-encodes image bytes at quality in [0,1] with the default
// compressor. See package compress for other codecs.
func Compress(data []byte, quality float64) ([]byte, error) {
	return compress.Compress(data, quality)
}

// CompressDataURL is Compress for base64 data URLs.
func CompressDataURL(s string, quality float64) (string, error) {
	return compress.CompressDataURL(s, quality)
}
