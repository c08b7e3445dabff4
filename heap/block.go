package heap

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Block format. A block at payload p looks like:
//
//	p-4    header  Pack(size, alloc)
//	p      payload (free blocks: successor link, then predecessor link)
//	p+s-8  footer  Pack(size, alloc)
//
// where s is the full block size including both tags.

func (h *Heap) word(off uint32) uint32 {
	return format.ReadU32(h.a.Bytes(), int(off))
}

func (h *Heap) putWord(off, v uint32) {
	format.PutU32(h.a.Bytes(), int(off), v)
}

// hdrp returns the offset of the header of the block at p.
func hdrp(p Ptr) uint32 {
	return p - format.WordSize
}

// ftrp returns the offset of the footer of the block at p.
func (h *Heap) ftrp(p Ptr) uint32 {
	return p + h.blockSize(p) - format.DWordSize
}

// blockSize reads the size of the block at p from its header.
func (h *Heap) blockSize(p Ptr) uint32 {
	return format.TagSize(h.word(hdrp(p)))
}

// isAlloc reads the allocated flag of the block at p from its header.
func (h *Heap) isAlloc(p Ptr) bool {
	return format.TagAlloc(h.word(hdrp(p)))
}

// setTags writes matching header and footer for a block of size at p.
// Size 0 is reserved for the epilogue and never legal here.
func (h *Heap) setTags(p Ptr, size uint32, alloc bool) {
	if size == 0 {
		panic(fmt.Sprintf("heap: zero-size block at 0x%X", p))
	}
	tag := format.Pack(size, alloc)
	h.putWord(hdrp(p), tag)
	h.putWord(p+size-format.DWordSize, tag)
}

// setEpilogue writes the zero-size allocated sentinel header for the
// (imaginary) block at p.
func (h *Heap) setEpilogue(p Ptr) {
	h.putWord(hdrp(p), format.Pack(0, true))
}

// nextBlock returns the payload of the block physically after p.
func (h *Heap) nextBlock(p Ptr) Ptr {
	return p + h.blockSize(p)
}

// prevBlock returns the payload of the block physically before p, using the
// predecessor's footer.
func (h *Heap) prevBlock(p Ptr) Ptr {
	return p - format.TagSize(h.word(p-format.DWordSize))
}

// prevAlloc reads the allocated flag of the physical predecessor's footer.
func (h *Heap) prevAlloc(p Ptr) bool {
	return format.TagAlloc(h.word(p - format.DWordSize))
}

// isLive reports whether p is the payload of an allocated block, using only
// O(1) tag reads.
func (h *Heap) isLive(p Ptr) bool {
	end := uint32(h.a.Len())
	if !format.IsAligned(int(p)) || p < h.first || p >= end {
		return false
	}
	tag := h.word(hdrp(p))
	size := format.TagSize(tag)
	if !format.TagAlloc(tag) || size < format.MinBlockSize {
		return false
	}
	// the block must end before the epilogue header
	if uint64(p)+uint64(size) > uint64(end) {
		return false
	}
	return h.word(p+size-format.DWordSize) == tag
}

// adjustSize converts a request to a block size: payload plus tags, rounded
// to the alignment, never below the minimum block.
func adjustSize(size int) uint32 {
	return uint32(max(format.Align8(size+format.TagOverhead), format.MinBlockSize))
}
