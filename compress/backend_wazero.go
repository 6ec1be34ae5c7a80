package compress

import (
	"image"
	"io"
	"sync"

	"github.com/gen2brain/webp"
)

func init() {
	Register("wasm", func() Backend { return wasmWebP{} })
}

// wasmWebP encodes lossy WebP with libwebp compiled to WebAssembly and run
// on the wazero runtime.
type wasmWebP struct{}

// wasmReady compiles and instantiates the module once per process. All
// callers, whichever Compressor they come through, wait on the same result.
var wasmReady = sync.OnceValue(func() error {
	probe := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	return webp.Encode(io.Discard, probe, webp.Options{Quality: 75})
})

func (wasmWebP) Name() string     { return "wasm" }
func (wasmWebP) MIMEType() string { return "image/webp" }
func (wasmWebP) Init() error      { return wasmReady() }

func (wasmWebP) Encode(w io.Writer, img image.Image, quality float64) error {
	return webp.Encode(w, img, webp.Options{Quality: percent(quality)})
}
