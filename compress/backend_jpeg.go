package compress

import (
	"image"
	"image/jpeg"
	"io"
)

func init() {
	Register("jpeg", func() Backend { return jpegCodec{} })
}

// jpegCodec uses the standard library baseline JPEG encoder. Alpha is
// dropped.
type jpegCodec struct{}

func (jpegCodec) Name() string     { return "jpeg" }
func (jpegCodec) MIMEType() string { return "image/jpeg" }
func (jpegCodec) Init() error      { return nil }

func (jpegCodec) Encode(w io.Writer, img image.Image, quality float64) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: max(1, percent(quality))})
}
