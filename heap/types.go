package heap

import (
	"log/slog"

	"github.com/joshuapare/heapkit/internal/format"
)

// Ptr is a payload pointer: the byte offset of a block's payload within the
// arena. Payload pointers are always 8-byte aligned.
type Ptr = uint32

// Nil is the null payload pointer. Offset 0 holds the heap magic, so no block
// can ever have a payload there.
const Nil Ptr = format.NilOffset

const (
	// DefaultChunkSize is the minimum growth increment, in bytes.
	DefaultChunkSize = 1 << 12

	// maxArenaLen keeps every offset representable in a 32-bit word.
	maxArenaLen = 1<<32 - format.DWordSize
)

// Options configures a Heap. The zero value selects the defaults.
type Options struct {
	// SizeClasses selects the bucket layout (nil for DefaultConfig).
	SizeClasses *SizeClassConfig

	// ChunkSize is the minimum number of bytes requested from the arena on
	// each growth (0 for DefaultChunkSize).
	ChunkSize int

	// CheckInvariants runs the full heap checker before and after every
	// mutating call and panics on the first violation. O(heap size) per call;
	// meant for tests and debug builds only.
	CheckInvariants bool

	// Logger receives growth and out-of-memory events (nil discards, unless
	// HEAPKIT_LOG_ALLOC is set in the environment).
	Logger *slog.Logger
}
