// Package pool provides reusable buffers for the inflate and encode paths.
// Copy buffers are bucketed by size class; output buffers are pooled
// *bytes.Buffer values capped so that one huge image does not pin memory.
package pool

import (
	"bytes"
	"sync"
)

// Size classes for copy buffers.
const (
	Size4K   = 4096
	Size32K  = 32768
	Size256K = 262144
)

// MaxPooledBuffer is the largest output buffer capacity kept for reuse.
const MaxPooledBuffer = 4 << 20

var sizes = [3]int{Size4K, Size32K, Size256K}

var copyPools [3]sync.Pool

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func init() {
	for i := range copyPools {
		sz := sizes[i]
		copyPools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

func bucketIndex(size int) int {
	switch {
	case size <= Size4K:
		return 0
	case size <= Size32K:
		return 1
	default:
		return 2
	}
}

// Get returns a byte slice of length size. Requests above Size256K are
// allocated directly. The caller should hand the slice back with Put.
func Get(size int) []byte {
	if size > Size256K {
		return make([]byte, size)
	}
	bp := copyPools[bucketIndex(size)].Get().(*[]byte)
	return (*bp)[:size]
}

// Put returns a slice obtained from Get. Slices whose capacity does not
// match a size class are dropped.
func Put(b []byte) {
	c := cap(b)
	idx := bucketIndex(c)
	if sizes[idx] != c {
		return
	}
	b = b[:c]
	copyPools[idx].Put(&b)
}

// GetBuffer returns an empty buffer from the pool.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool unless it grew past MaxPooledBuffer.
// The caller must not retain buf.Bytes() afterwards.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
