// Package pool provides reusable byte buffers bucketed by power-of-two
// capacity. Buffers are handed out with zero length.
package pool

import (
	"math/bits"
	"sync"
)

const (
	// MinBufferSize is the smallest capacity handed out.
	MinBufferSize = 16
	// MaxBufferSize is the largest pooled capacity. Larger requests are
	// allocated directly and dropped on Put.
	MaxBufferSize = 1 << 20

	minClass = 4 // log2(MinBufferSize)
	maxClass = 20
)

// BufferPool is a set of sync.Pools keyed by size class.
// The zero value is ready to use and safe for concurrent use.
type BufferPool struct {
	classes [maxClass - minClass + 1]sync.Pool
}

// Default is the process-wide buffer pool.
var Default = &BufferPool{}

// class returns the index of the smallest class holding size bytes.
func class(size int) int {
	if size <= MinBufferSize {
		return 0
	}
	return bits.Len(uint(size-1)) - minClass
}

// Get returns a buffer with len 0 and cap >= size.
func (p *BufferPool) Get(size int) []byte {
	if size > MaxBufferSize {
		return make([]byte, 0, size)
	}
	c := class(size)
	if v := p.classes[c].Get(); v != nil {
		return (*v.(*[]byte))[:0]
	}
	return make([]byte, 0, 1<<(c+minClass))
}

// Put returns b to the pool. Buffers whose capacity is not an exact class
// size are dropped.
func (p *BufferPool) Put(b []byte) {
	n := cap(b)
	if n < MinBufferSize || n > MaxBufferSize || n&(n-1) != 0 {
		return
	}
	b = b[:0]
	p.classes[class(n)].Put(&b)
}

// Grow returns a buffer holding the contents of b with room for at least n
// more bytes, moving to a larger class when needed.
func (p *BufferPool) Grow(b []byte, n int) []byte {
	if cap(b)-len(b) >= n {
		return b
	}
	nb := p.Get(len(b) + n)
	nb = append(nb, b...)
	p.Put(b)
	return nb
}
