// Package compress re-encodes images for upload.
//
// The actual encoding is done by a pluggable Backend: lossy WebP through
// libwebp compiled to WebAssembly (the default), lossless WebP in pure Go,
// libwebp through cgo when available, or baseline JPEG. This package only
// adapts formats around the codec: it decodes the input bytes, optionally
// downscales, encodes, and converts to and from base64 data URLs.
//
// Basic usage:
//
//	out, err := compress.Compress(pngBytes, 0.8)
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/deepteams/pnginfo/internal/pool"
)

// DefaultBackend is the backend used when Options.Backend is empty.
const DefaultBackend = "wasm"

var (
	ErrCodec          = errors.New("compress: codec failure")
	ErrInvalidQuality = errors.New("compress: quality must be within [0, 1]")
	ErrInvalidScale   = errors.New("compress: scale must be within (0, 1]")
	ErrUnknownBackend = errors.New("compress: unknown backend")
	ErrInvalidDataURL = errors.New("compress: invalid data URL")
)

// Options configures a Compressor. The zero value selects DefaultBackend
// at full size.
type Options struct {
	// Backend names a registered codec; see Backends.
	Backend string

	// Scale resizes the image by this factor before encoding. Zero means 1.
	Scale float64

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger
}

// Compressor re-encodes images with one backend. It is safe for concurrent
// use.
type Compressor struct {
	backend Backend
	scale   float64
	log     *slog.Logger
	ready   func() error
}

// New creates a Compressor. The backend is not initialized until the first
// call that needs it.
func New(opts *Options) (*Compressor, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Backend == "" {
		o.Backend = DefaultBackend
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if math.IsNaN(o.Scale) || o.Scale <= 0 || o.Scale > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, o.Scale)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	b, err := lookup(o.Backend)
	if err != nil {
		return nil, err
	}
	c := &Compressor{backend: b, scale: o.Scale, log: o.Logger}
	c.ready = sync.OnceValue(c.init)
	return c, nil
}

func (c *Compressor) init() error {
	start := time.Now()
	if err := c.backend.Init(); err != nil {
		c.log.Debug("codec init failed", "backend", c.backend.Name(), "err", err)
		return err
	}
	c.log.Debug("codec initialized", "backend", c.backend.Name(), "elapsed", time.Since(start))
	return nil
}

// Init initializes the backend now instead of on first use. Concurrent and
// repeated calls share a single initialization and its result.
func (c *Compressor) Init() error {
	if err := c.ready(); err != nil {
		return fmt.Errorf("%w: init %s: %v", ErrCodec, c.backend.Name(), err)
	}
	return nil
}

// Backend returns the name of the codec in use.
func (c *Compressor) Backend() string { return c.backend.Name() }

// MIMEType returns the media type of the compressor's output.
func (c *Compressor) MIMEType() string { return c.backend.MIMEType() }

// Compress decodes data (PNG, JPEG, GIF, BMP or WebP) and re-encodes it at
// quality in [0,1].
func (c *Compressor) Compress(data []byte, quality float64) ([]byte, error) {
	if err := checkQuality(quality); err != nil {
		return nil, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding input: %v", ErrCodec, err)
	}
	return c.CompressImage(img, quality)
}

// CompressImage encodes an already decoded image.
func (c *Compressor) CompressImage(img image.Image, quality float64) ([]byte, error) {
	if err := checkQuality(quality); err != nil {
		return nil, err
	}
	if err := c.Init(); err != nil {
		return nil, err
	}
	if c.scale != 1 {
		img = scaleImage(img, c.scale)
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := c.backend.Encode(buf, img, quality); err != nil {
		return nil, fmt.Errorf("%w: %s encode: %v", ErrCodec, c.backend.Name(), err)
	}
	c.log.Debug("image compressed", "backend", c.backend.Name(),
		"bounds", img.Bounds().String(), "quality", quality, "bytes", buf.Len())
	return bytes.Clone(buf.Bytes()), nil
}

// CompressDataURL accepts a base64 data URL (or bare base64) and returns
// the re-encoded image as a data URL with the backend's MIME type.
func (c *Compressor) CompressDataURL(s string, quality float64) (string, error) {
	data, _, err := ParseDataURL(s)
	if err != nil {
		return "", err
	}
	out, err := c.Compress(data, quality)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(out, c.MIMEType()), nil
}

func checkQuality(q float64) error {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidQuality, q)
	}
	return nil
}

// defaultCompressor is built on first use and shared by the package-level
// helpers.
var defaultCompressor = sync.OnceValues(func() (*Compressor, error) {
	return New(nil)
})

// Default returns the shared Compressor using DefaultBackend.
func Default() (*Compressor, error) {
	return defaultCompressor()
}

// Compress re-encodes data with the default Compressor.
func Compress(data []byte, quality float64) ([]byte, error) {
	c, err := defaultCompressor()
	if err != nil {
		return nil, err
	}
	return c.Compress(data, quality)
}

// CompressDataURL re-encodes a data URL with the default Compressor.
func CompressDataURL(s string, quality float64) (string, error) {
	c, err := defaultCompressor()
	if err != nil {
		return "", err
	}
	return c.CompressDataURL(s, quality)
}
