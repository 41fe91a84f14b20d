package pool

import (
	"sync"
	"testing"
)

func TestBufferPool_Get(t *testing.T) {
	p := &BufferPool{}

	for _, tc := range []struct{ size, cap int }{
		{0, 16}, {1, 16}, {16, 16}, {17, 32}, {256, 256}, {257, 512}, {MaxBufferSize, MaxBufferSize},
	} {
		b := p.Get(tc.size)
		if len(b) != 0 {
			t.Errorf("Get(%d) len = %d, want 0", tc.size, len(b))
		}
		if cap(b) != tc.cap {
			t.Errorf("Get(%d) cap = %d, want %d", tc.size, cap(b), tc.cap)
		}
	}

	if b := p.Get(MaxBufferSize + 1); cap(b) < MaxBufferSize+1 {
		t.Errorf("oversized Get cap = %d", cap(b))
	}
}

func TestBufferPool_PutReturnsEmptyBuffers(t *testing.T) {
	p := &BufferPool{}
	b := p.Get(64)
	b = append(b, "hello"...)
	p.Put(b)

	got := p.Get(64)
	if len(got) != 0 || cap(got) < 64 {
		t.Errorf("Get after Put: len=%d cap=%d", len(got), cap(got))
	}

	// Odd capacities are never pooled.
	p.Put(make([]byte, 0, 100))
}

func TestBufferPool_Grow(t *testing.T) {
	p := &BufferPool{}
	b := append(p.Get(16), "0123456789abcdef"...)
	b = p.Grow(b, 10)
	if cap(b) < 26 {
		t.Fatalf("cap = %d, want >= 26", cap(b))
	}
	if string(b) != "0123456789abcdef" {
		t.Fatalf("contents lost: %q", b)
	}
	if same := p.Grow(b, 1); &same[:1][0] != &b[:1][0] {
		t.Errorf("Grow reallocated although capacity sufficed")
	}
}

func TestBufferPool_Concurrent(t *testing.T) {
	p := &BufferPool{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				b := p.Get(n*32 + j%100)
				b = append(b, byte(j))
				p.Put(b)
			}
		}(i)
	}
	wg.Wait()
}
