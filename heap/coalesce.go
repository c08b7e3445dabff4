package heap

// coalesce merges the free, untracked block at p with free physical
// neighbors and returns the payload of the merged block, which is also
// untracked. Neighbors are unlinked before their sizes are absorbed so their
// bucket is computed from the size they were inserted with.
func (h *Heap) coalesce(p Ptr) Ptr {
	prevAlloc := h.prevAlloc(p)
	next := h.nextBlock(p)
	nextAlloc := h.isAlloc(next)
	size := h.blockSize(p)

	switch {
	case prevAlloc && nextAlloc:
		return p

	case prevAlloc && !nextAlloc:
		h.removeFree(next)
		size += h.blockSize(next)
		h.setTags(p, size, false)
		h.stats.CoalesceForward++

	case !prevAlloc && nextAlloc:
		prev := h.prevBlock(p)
		h.removeFree(prev)
		size += h.blockSize(prev)
		h.setTags(prev, size, false)
		p = prev
		h.stats.CoalesceBackward++

	default:
		prev := h.prevBlock(p)
		h.removeFree(prev)
		h.removeFree(next)
		size += h.blockSize(prev) + h.blockSize(next)
		h.setTags(prev, size, false)
		p = prev
		h.stats.CoalesceForward++
		h.stats.CoalesceBackward++
	}

	return p
}
