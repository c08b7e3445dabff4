package heap

import "github.com/joshuapare/heapkit/internal/format"

// Segregated free lists. Each bucket head lives in the heap header; the links
// of a free block overlay its first two payload words. Lists are LIFO and
// unordered, so insert and remove are both O(1).

func (h *Heap) succ(p Ptr) Ptr { return h.word(p) }

func (h *Heap) pred(p Ptr) Ptr { return h.word(p + format.WordSize) }

func (h *Heap) setSucc(p, v Ptr) { h.putWord(p, v) }

func (h *Heap) setPred(p, v Ptr) { h.putWord(p+format.WordSize, v) }

func (h *Heap) bucketHead(class int) Ptr {
	return h.word(uint32(h.layout.BucketOffset(class)))
}

func (h *Heap) setBucketHead(class int, p Ptr) {
	h.putWord(uint32(h.layout.BucketOffset(class)), p)
}

// insertFree pushes the free block at p onto the head of its bucket. The
// bucket is derived from the block's current size.
func (h *Heap) insertFree(p Ptr) {
	class := h.sizeTable.getSizeClass(h.blockSize(p))
	head := h.bucketHead(class)

	h.setPred(p, Nil)
	h.setSucc(p, head)
	if head != Nil {
		h.setPred(head, p)
	}
	h.setBucketHead(class, p)
	h.stats.ListInserts++
}

// removeFree unlinks the free block at p. The caller must know p is free and
// tracked; the bucket is recomputed from the block's size, which must not
// have changed since insertion.
func (h *Heap) removeFree(p Ptr) {
	succ, pred := h.succ(p), h.pred(p)

	if pred != Nil {
		h.setSucc(pred, succ)
	} else {
		h.setBucketHead(h.sizeTable.getSizeClass(h.blockSize(p)), succ)
	}
	if succ != Nil {
		h.setPred(succ, pred)
	}
	h.stats.ListRemoves++
}
