//go:build cgo

package compress

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

func init() {
	Register("cgo", func() Backend { return cgoWebP{} })
}

// cgoWebP links libwebp through cgo. Only built when cgo is enabled.
type cgoWebP struct{}

func (cgoWebP) Name() string     { return "cgo" }
func (cgoWebP) MIMEType() string { return "image/webp" }
func (cgoWebP) Init() error      { return nil }

func (cgoWebP) Encode(w io.Writer, img image.Image, quality float64) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(percent(quality))})
}
