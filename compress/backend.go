package compress

import (
	"fmt"
	"image"
	"io"
	"math"
	"slices"
	"sync"
)

// Backend is an external image codec.
type Backend interface {
	// Name is the registry key.
	Name() string
	// MIMEType is the media type of the encoded output.
	MIMEType() string
	// Init prepares the codec. It may be expensive; a Compressor calls it
	// at most once.
	Init() error
	// Encode writes img to w at quality in [0,1]. Lossless codecs may
	// ignore quality.
	Encode(w io.Writer, img image.Image, quality float64) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Backend)
)

// Register makes a backend available under name. It panics if name is
// already registered or factory is nil.
func Register(name string, factory func() Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("compress: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("compress: Register called twice for backend " + name)
	}
	registry[name] = factory
}

// Backends returns the sorted names of the registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookup(name string) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, name, Backends())
	}
	return factory(), nil
}

// percent maps a [0,1] quality to the 0..100 scale used by codecs.
func percent(q float64) int {
	return int(math.Round(q * 100))
}
