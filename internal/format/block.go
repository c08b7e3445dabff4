package format

import (
	"fmt"
	"math/bits"
)

// Boundary tag layout (little-endian word):
//
//	Bits   Description
//	31..3  Block size in bytes (multiple of 8, includes header and footer)
//	2..1   Unused, always zero
//	0      Allocated flag
//
// A free block overlays two links on its payload:
//
//	Offset  Size  Description
//	p+0     4     Successor payload offset in the same bucket (0 = none)
//	p+4     4     Predecessor payload offset in the same bucket (0 = none)

// Pack combines a block size and allocated flag into a boundary tag.
func Pack(size uint32, alloc bool) uint32 {
	if alloc {
		return size | AllocBit
	}
	return size
}

// TagSize extracts the block size from a boundary tag.
func TagSize(tag uint32) uint32 {
	return tag &^ DWordMask
}

// TagAlloc extracts the allocated flag from a boundary tag.
func TagAlloc(tag uint32) bool {
	return tag&AllocBit != 0
}

// SizeClass maps a block size to its bucket. Bucket i holds sizes in
// [2^(minShift+i), 2^(minShift+i+1)); the last bucket also holds everything
// larger and the first bucket everything smaller.
func SizeClass(size uint32, minShift, numClasses int) int {
	c := bits.Len32(size) - 1 - minShift
	if c < 0 {
		return 0
	}
	if c >= numClasses {
		return numClasses - 1
	}
	return c
}

// ClassBounds returns the inclusive lower and exclusive upper size of bucket
// i. The upper bound of the last bucket is 0, meaning unbounded.
func ClassBounds(i, minShift, numClasses int) (lo, hi uint64) {
	lo = uint64(1) << uint(minShift+i)
	if i == 0 {
		lo = MinBlockSize
	}
	if i == numClasses-1 {
		return lo, 0
	}
	return lo, uint64(1) << uint(minShift+i+1)
}

// Header describes the fixed region at the start of a heap.
type Header struct {
	NumClasses int
	MinShift   int
}

// Validate checks that the size-class parameters describe a usable table.
func (h Header) Validate() error {
	if h.MinShift < 4 || h.MinShift > 16 {
		return fmt.Errorf("%w: min shift %d outside [4,16]", ErrBadClasses, h.MinShift)
	}
	if h.NumClasses < 1 || h.NumClasses > 32-h.MinShift {
		return fmt.Errorf("%w: %d classes with min shift %d", ErrBadClasses, h.NumClasses, h.MinShift)
	}
	return nil
}

// BucketOffset returns the offset of the head word of bucket class.
func (h Header) BucketOffset(class int) int {
	return HeaderBucketsOffset + class*WordSize
}

// tableEnd is the first double-word boundary after the bucket table.
func (h Header) tableEnd() int {
	return Align8(HeaderBucketsOffset + h.NumClasses*WordSize)
}

// Prologue returns the payload offset of the prologue block.
func (h Header) Prologue() int {
	return h.tableEnd() + DWordSize
}

// Len returns the size of the initial layout: header, bucket table, padding,
// prologue and epilogue.
func (h Header) Len() int {
	return h.tableEnd() + 2*DWordSize
}

// FirstBlock returns the payload offset of the first block after the prologue.
func (h Header) FirstBlock() int {
	return h.Len()
}

// Write stores the header fields and an empty bucket table into b.
func (h Header) Write(b []byte) {
	copy(b[HeaderMagicOffset:], HeapMagic)
	PutU32(b, HeaderNumClassesOffset, uint32(h.NumClasses))
	PutU32(b, HeaderMinShiftOffset, uint32(h.MinShift))
	PutU32(b, HeaderReservedOffset, 0)
	for i := range h.NumClasses {
		PutU32(b, h.BucketOffset(i), NilOffset)
	}
}

// ParseHeader decodes and validates the heap header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderBucketsOffset {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	if string(b[HeaderMagicOffset:HeaderMagicOffset+4]) != string(HeapMagic) {
		return Header{}, fmt.Errorf("header: %w", ErrSignatureMismatch)
	}
	h := Header{
		NumClasses: int(ReadU32(b, HeaderNumClassesOffset)),
		MinShift:   int(ReadU32(b, HeaderMinShiftOffset)),
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	if len(b) < h.Len() {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	return h, nil
}
