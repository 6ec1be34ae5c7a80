package compress

import (
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
)

func init() {
	Register("native", func() Backend { return nativeWebP{} })
}

// nativeWebP is a pure Go lossless WebP encoder. Quality is ignored.
type nativeWebP struct{}

func (nativeWebP) Name() string     { return "native" }
func (nativeWebP) MIMEType() string { return "image/webp" }
func (nativeWebP) Init() error      { return nil }

func (nativeWebP) Encode(w io.Writer, img image.Image, _ float64) error {
	return nativewebp.Encode(w, img, nil)
}
