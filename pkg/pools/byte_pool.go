// Package pools recycles the scratch buffers used to encode and decode
// snapshot frames.
package pools

import (
	"sync"
)

// Buffer size classes. A frame for n nodes is roughly 40n bytes of JSON.
const (
	SmallSize  = 4 << 10
	MediumSize = 16 << 10
	LargeSize  = 64 << 10
	HugeSize   = 256 << 10
	MaxPool    = 1 << 20 // larger buffers are left to the GC
)

var classes = [...]int{SmallSize, MediumSize, LargeSize, HugeSize, MaxPool}

// BytePool hands out byte slices from size classes.
type BytePool struct {
	pools [len(classes)]sync.Pool
}

// NewBytePool creates an empty pool.
func NewBytePool() *BytePool {
	p := &BytePool{}
	for i, size := range classes {
		p.pools[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// Get returns a zero-length slice with at least size capacity.
func (p *BytePool) Get(size int) []byte {
	for i, c := range classes {
		if size <= c {
			bp := p.pools[i].Get().(*[]byte)
			return (*bp)[:0]
		}
	}
	return make([]byte, 0, size)
}

// GetSized returns a slice of length size.
func (p *BytePool) GetSized(size int) []byte {
	return p.Get(size)[:size]
}

// Put recycles b into the largest class it can serve. Slices smaller than
// the smallest class or larger than MaxPool are dropped.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < SmallSize || c > MaxPool {
		return
	}
	for i := len(classes) - 1; i >= 0; i-- {
		if c >= classes[i] {
			b = b[:0]
			p.pools[i].Put(&b)
			return
		}
	}
}

var defaultBytePool = NewBytePool()

// GetBytes returns a slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a slice of length size from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns b to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
