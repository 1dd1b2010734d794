// ABOUTME: Fixed-capacity ring buffer of recent values
// ABOUTME: Overwrites the oldest entry once full and snapshots oldest first
package ring

import "sync"

type Buffer[T any] struct {
	buf []T
	w   int // next write position
	n   int // entries stored
	mu  sync.Mutex
}

// New returns a buffer holding at most size entries. A size below one is
// treated as one.
func New[T any](size int) *Buffer[T] {
	if size < 1 {
		size = 1
	}
	return &Buffer[T]{buf: make([]T, size)}
}

func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf[b.w] = v
	b.w = (b.w + 1) % len(b.buf)
	if b.n < len(b.buf) {
		b.n++
	}
}

func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func (b *Buffer[T]) Cap() int {
	return len(b.buf)
}

// Snapshot copies the stored entries, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, b.n)
	if b.n == 0 {
		return out
	}

	head := (b.w - b.n + len(b.buf)) % len(b.buf)
	if head+b.n <= len(b.buf) {
		copy(out, b.buf[head:head+b.n])
	} else {
		k := copy(out, b.buf[head:])
		copy(out[k:], b.buf[:b.n-k])
	}

	return out
}
