package heap

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/heapkit/internal/format"
)

// grow extends the arena by at least minBytes and returns the resulting free
// block, already coalesced with a free predecessor and inserted in its
// bucket. The request is rounded to an even number of words so block
// boundaries stay double-word aligned. On failure the heap is unchanged.
func (h *Heap) grow(minBytes int) (Ptr, error) {
	size := format.EvenWords(minBytes)

	if uint64(h.a.Len())+uint64(size) > maxArenaLen {
		h.log.Warn("heap: grow denied",
			slog.Int("need", size),
			slog.Int("arena", h.a.Len()),
			slog.String("reason", "32-bit offset limit"))
		return Nil, fmt.Errorf("%w: grow by %d would exceed the 4GiB offset limit", ErrOutOfMemory, size)
	}

	base, err := h.a.Grow(size)
	if err != nil {
		h.log.Warn("heap: grow failed",
			slog.Int("need", size),
			slog.Int("arena", h.a.Len()),
			slog.Any("err", err))
		return Nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(size)
	h.log.Debug("heap: grew arena",
		slog.Int("bytes", size),
		slog.Int("arena", h.a.Len()),
		slog.Int("grows", h.stats.GrowCalls))

	// The new block's header overwrites the old epilogue.
	p := Ptr(base)
	h.setTags(p, uint32(size), false)
	h.setEpilogue(h.nextBlock(p))

	if h.onGrow != nil {
		h.onGrow(size)
	}

	p = h.coalesce(p)
	h.insertFree(p)
	return p, nil
}
