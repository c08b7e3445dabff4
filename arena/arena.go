// Package arena provides the growth primitive underneath a heapkit heap: a
// single contiguous byte region that only ever grows at its top, the way
// sbrk extends a process data segment.
//
// Two implementations are provided:
//
//   - MemArena: a Go slice with a fixed up-front reservation
//   - MapArena: an anonymous virtual-memory reservation whose pages are
//     committed on demand (unix only; other platforms fall back to a slice)
//
// Growth never moves existing bytes, so slices previously obtained from
// Bytes stay valid for the lifetime of the arena.
//
// Arenas are not safe for concurrent use.
package arena

import "errors"

var (
	// ErrExhausted indicates the reservation cannot satisfy the requested growth.
	ErrExhausted = errors.New("arena: reservation exhausted")

	// ErrBadIncrement indicates a non-positive growth increment.
	ErrBadIncrement = errors.New("arena: increment must be positive")

	// ErrClosed indicates the arena was used after Close.
	ErrClosed = errors.New("arena: closed")
)

// Arena is the contract between a heap and the memory it manages.
type Arena interface {
	// Grow extends the region by exactly n bytes and returns the offset of the
	// first new byte (the previous length). New bytes are zeroed. On failure
	// the region is unchanged.
	Grow(n int) (int, error)

	// Bytes returns the region [0, Len()).
	Bytes() []byte

	// Len returns the current size of the region.
	Len() int

	// Cap returns the largest size the region can ever reach.
	Cap() int
}
