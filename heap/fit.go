package heap

import "github.com/joshuapare/heapkit/internal/format"

// findFit scans buckets upward from the request's own class and returns the
// first block, in list order, that is large enough. Nil means grow.
func (h *Heap) findFit(asize uint32) Ptr {
	for class := h.sizeTable.getSizeClass(asize); class < h.sizeTable.NumClasses(); class++ {
		for p := h.bucketHead(class); p != Nil; p = h.succ(p) {
			h.stats.FitProbes++
			if h.blockSize(p) >= asize {
				return p
			}
		}
	}
	return Nil
}

// place allocates asize bytes at the start of the tracked free block p. A
// remainder of at least the minimum block size is split off, coalesced and
// returned to its bucket; a smaller one stays inside the allocation.
func (h *Heap) place(p Ptr, asize uint32) {
	csize := h.blockSize(p)
	h.removeFree(p)

	if csize-asize >= format.MinBlockSize {
		h.setTags(p, asize, true)
		rest := p + asize
		h.setTags(rest, csize-asize, false)
		h.insertFree(h.coalesce(rest))
		h.stats.SplitCount++
		return
	}

	h.setTags(p, csize, true)
}
