package heap

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/bits"
	"os"

	"github.com/joshuapare/heapkit/arena"
	"github.com/joshuapare/heapkit/internal/format"
)

// Runtime debug flag for allocation logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// Heap is a dynamic memory allocator over a single growable arena using
// boundary-tagged blocks and segregated free lists.
//
// All allocator state (bucket heads, sentinels, links) lives inside the arena
// itself; the Heap value only caches layout constants and statistics.
//
// A Heap is not safe for concurrent use. Callers that share one must guard
// every call with a single mutex.
type Heap struct {
	a         arena.Arena
	sizeTable *sizeClassTable
	layout    format.Header

	chunk    int
	prologue Ptr
	first    Ptr // payload of the first block after the prologue

	check bool
	log   *slog.Logger

	// Statistics for testing and instrumentation
	stats Stats

	// Test hook: called after each arena growth (nil in production)
	onGrow func(int)
}

// New formats an empty arena as a heap and extends it with one chunk of free
// space.
//
// Parameters:
//   - a: the arena to manage; must be empty and is owned by the heap afterwards
//   - opts: configuration (nil for defaults)
func New(a arena.Arena, opts *Options) (*Heap, error) {
	if opts == nil {
		opts = &Options{}
	}
	config := opts.SizeClasses
	if config == nil {
		config = &DefaultConfig
	}
	sizeTable, err := newSizeClassTable(*config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if a.Len() != 0 {
		return nil, fmt.Errorf("%w: arena already holds %d bytes", ErrInvalidArgument, a.Len())
	}

	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	logger := opts.Logger
	if logger == nil {
		if logAlloc {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		} else {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}

	layout := sizeTable.layout
	h := &Heap{
		a:         a,
		sizeTable: sizeTable,
		layout:    layout,
		chunk:     chunk,
		prologue:  Ptr(layout.Prologue()),
		first:     Ptr(layout.FirstBlock()),
		check:     opts.CheckInvariants,
		log:       logger,
	}

	if _, err := a.Grow(layout.Len()); err != nil {
		return nil, fmt.Errorf("%w: initial layout: %w", ErrOutOfMemory, err)
	}
	layout.Write(a.Bytes())
	h.putWord(hdrp(h.prologue)-format.WordSize, 0) // alignment padding
	h.setTags(h.prologue, format.PrologueSize, true)
	h.setEpilogue(h.first)

	if _, err := h.grow(chunk); err != nil {
		return nil, err
	}

	h.log.Debug("heap: initialized",
		slog.String("classes", sizeTable.String()),
		slog.Int("num_classes", sizeTable.NumClasses()),
		slog.Int("chunk", chunk),
		slog.Int("arena", a.Len()))

	h.mustCheck("New")
	return h, nil
}

// Allocate returns the payload of a new block with at least size usable
// bytes. Allocate(0) returns Nil without touching the arena.
func (h *Heap) Allocate(size int) (Ptr, error) {
	if size < 0 {
		return Nil, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}
	if size == 0 {
		return Nil, nil
	}
	if uint64(size) > format.MaxBlockSize-format.TagOverhead {
		return Nil, fmt.Errorf("%w: request of %d bytes exceeds the block size limit", ErrOutOfMemory, size)
	}

	h.mustCheck("Allocate")
	h.stats.AllocCalls++

	asize := adjustSize(size)

	p := h.findFit(asize)
	if p == Nil {
		grown, err := h.grow(max(int(asize), h.chunk))
		if err != nil {
			return Nil, err
		}
		p = grown
		h.stats.AllocSlowPath++
	} else {
		h.stats.AllocFastPath++
	}

	h.place(p, asize)
	h.stats.BytesAllocated += int64(h.blockSize(p))

	h.mustCheck("Allocate")
	return p, nil
}

// Release returns the block at p to the free structure, merging it with free
// neighbors. Release(Nil) is a no-op. Releasing anything but a live payload
// pointer returns ErrBadPointer and leaves the heap untouched.
func (h *Heap) Release(p Ptr) error {
	if p == Nil {
		return nil
	}
	if !h.isLive(p) {
		return fmt.Errorf("%w: 0x%X is not an allocated block", ErrBadPointer, p)
	}

	h.mustCheck("Release")
	h.stats.FreeCalls++

	size := h.blockSize(p)
	h.stats.BytesFreed += int64(size)
	h.setTags(p, size, false)
	h.insertFree(h.coalesce(p))

	h.mustCheck("Release")
	return nil
}

// Resize moves the contents of p into a block of at least size usable
// bytes. Resize(p, 0) releases p and returns Nil; Resize(Nil, n) is
// Allocate(n). The first min(old usable size, size) bytes are preserved. If
// the new block cannot be allocated the old one is left untouched.
func (h *Heap) Resize(p Ptr, size int) (Ptr, error) {
	if size < 0 {
		return Nil, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}
	if size == 0 {
		return Nil, h.Release(p)
	}
	if p == Nil {
		return h.Allocate(size)
	}
	if !h.isLive(p) {
		return Nil, fmt.Errorf("%w: 0x%X is not an allocated block", ErrBadPointer, p)
	}

	np, err := h.Allocate(size)
	if err != nil {
		return Nil, err
	}
	h.stats.ResizeCalls++

	n := min(h.UsableSize(p), size)
	data := h.a.Bytes()
	copy(data[np:int(np)+n], data[p:int(p)+n])

	if err := h.Release(p); err != nil {
		return Nil, err
	}
	return np, nil
}

// AllocateZeroed allocates count*size bytes and zero-fills the whole payload.
// A product that overflows returns ErrInvalidArgument; a zero product
// returns Nil.
func (h *Heap) AllocateZeroed(count, size int) (Ptr, error) {
	if count < 0 || size < 0 {
		return Nil, fmt.Errorf("%w: negative count %d or size %d", ErrInvalidArgument, count, size)
	}
	hi, total := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || total > math.MaxInt {
		return Nil, fmt.Errorf("%w: %d * %d overflows", ErrInvalidArgument, count, size)
	}

	p, err := h.Allocate(int(total))
	if err != nil || p == Nil {
		return p, err
	}
	clear(h.Payload(p))
	return p, nil
}

// Payload returns the usable bytes of the allocated block at p. The slice
// stays valid until p is released or resized; writing past it corrupts the
// heap. It returns nil for pointers that are not live.
func (h *Heap) Payload(p Ptr) []byte {
	if !h.isLive(p) {
		return nil
	}
	end := int(p) + h.UsableSize(p)
	return h.a.Bytes()[p:end:end]
}

// UsableSize returns the payload capacity of the block at p: its size minus
// the header and footer.
func (h *Heap) UsableSize(p Ptr) int {
	return int(h.blockSize(p)) - format.TagOverhead
}

// Len returns the current arena size in bytes.
func (h *Heap) Len() int {
	return h.a.Len()
}

// Walk visits every block between the prologue and the epilogue in address
// order. Returning false from fn stops the walk.
func (h *Heap) Walk(fn func(p Ptr, size int, allocated bool) bool) {
	for p := h.first; h.blockSize(p) > 0; p = h.nextBlock(p) {
		if !fn(p, int(h.blockSize(p)), h.isAlloc(p)) {
			return
		}
	}
}

// Bytes returns the whole arena, header and sentinels included. It is meant
// for inspection (see package verify); writing to it corrupts the heap.
func (h *Heap) Bytes() []byte {
	return h.a.Bytes()
}

// Close releases the arena if it holds external resources (see
// arena.MapArena). The heap must not be used afterwards.
func (h *Heap) Close() error {
	if c, ok := h.a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
