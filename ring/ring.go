// Package ring implements a lock-free single-producer/single-consumer byte ring.
//
// Assumptions:
//   - Exactly one goroutine writes and exactly one goroutine reads.
//   - The write cursor is advanced only by the writer, the read cursor only by the reader.
//   - One slot always stays empty, so size-1 bytes are usable and empty/full are
//     distinguishable from the two cursors alone.
//
// No method allocates, locks or waits. A write either stores the whole
// message or nothing, and the ring never overwrites unread bytes.
package ring

import (
	"sync/atomic"
)

// Ring is a fixed-size byte ring buffer.
//
// The cursors sit on separate cache lines so the producer and consumer do
// not false-share.
type Ring struct {
	_    [64]byte
	head atomic.Uint64 // read cursor (consumer)
	_    [56]byte
	tail atomic.Uint64 // write cursor (producer)
	_    [56]byte

	size uint64
	buf  []byte
}

// New returns a ring of size bytes, of which size-1 are usable.
// Panics if size < 2.
func New(size int) *Ring {
	if size < 2 {
		panic("ring: size must be at least 2")
	}
	return &Ring{
		size: uint64(size),
		buf:  make([]byte, size),
	}
}

// Size returns the size given to New.
func (r *Ring) Size() int { return int(r.size) }

// WriteAvailable returns the number of bytes a Write can currently store.
// Exact for the producer; a lower bound for anyone else.
func (r *Ring) WriteAvailable() int {
	return int(r.free(r.head.Load(), r.tail.Load()))
}

// ReadAvailable returns the number of bytes ready to read.
// Exact for the consumer; a lower bound for anyone else.
func (r *Ring) ReadAvailable() int {
	return int(r.used(r.head.Load(), r.tail.Load()))
}

// Write stores all of p, or nothing if p does not fit in the free space.
// Producer side only.
func (r *Ring) Write(p []byte) bool {
	n := uint64(len(p))
	tail := r.tail.Load()
	head := r.head.Load()
	if n > r.free(head, tail) {
		return false
	}
	if n == 0 {
		return true
	}

	first := min(n, r.size-tail)
	copy(r.buf[tail:tail+first], p[:first])
	copy(r.buf, p[first:])

	r.tail.Store((tail + n) % r.size)
	return true
}

// Read copies up to len(dst) buffered bytes into dst and returns the count.
// Consumer side only.
func (r *Ring) Read(dst []byte) int {
	return r.Discard(r.Peek(dst))
}

// Peek copies up to len(dst) buffered bytes into dst without consuming them.
// Consumer side only.
func (r *Ring) Peek(dst []byte) int {
	head := r.head.Load()
	n := min(uint64(len(dst)), r.used(head, r.tail.Load()))
	if n == 0 {
		return 0
	}

	first := min(n, r.size-head)
	copy(dst[:first], r.buf[head:head+first])
	copy(dst[first:n], r.buf[:n-first])
	return int(n)
}

// Discard consumes up to n buffered bytes and returns the count.
// Consumer side only.
func (r *Ring) Discard(n int) int {
	head := r.head.Load()
	k := min(uint64(max(n, 0)), r.used(head, r.tail.Load()))
	if k == 0 {
		return 0
	}
	r.head.Store((head + k) % r.size)
	return int(k)
}

func (r *Ring) used(head, tail uint64) uint64 {
	return (tail + r.size - head) % r.size
}

func (r *Ring) free(head, tail uint64) uint64 {
	return (head + r.size - tail - 1) % r.size
}
