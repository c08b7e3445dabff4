// Package format houses the low-level encoding of a heapkit heap: word
// access, alignment, boundary tags, the embedded heap header and the
// size-class function. It is shared by the allocator and the checker so that
// both agree on every byte of the layout without either depending on the
// other.
package format

// HeapMagic is the four-byte signature at offset 0 of every heap.
// Layout:
//
//	0x00  'h' 'k' 'h' 'p'
var HeapMagic = []byte{'h', 'k', 'h', 'p'}

const (
	// WordSize is the size of a boundary tag and of a free-list link.
	WordSize = 4

	// DWordSize is the payload alignment and the granularity of block sizes.
	DWordSize = 8

	// DWordMask masks the low bits of a double-word aligned value.
	DWordMask = DWordSize - 1

	// TagOverhead is the per-block cost of the header and footer words.
	TagOverhead = 2 * WordSize

	// MinBlockSize is the smallest legal block: header, successor link,
	// predecessor link and footer.
	MinBlockSize = 2 * DWordSize

	// AllocBit is the low bit of a boundary tag; set when the block is in use.
	AllocBit = 0x1

	// MaxBlockSize is the largest size a 32-bit boundary tag can describe.
	MaxBlockSize = 0xFFFFFFF8

	// NilOffset marks an empty link or an empty bucket.
	NilOffset = 0
)

// Heap header layout (little-endian):
//
//	Offset  Size  Description
//	0x00    4     Magic "hkhp"
//	0x04    4     Number of size classes (K)
//	0x08    4     Base exponent of the smallest class
//	0x0C    4     Reserved, always zero
//	0x10    4*K   Bucket heads (payload offsets, 0 = empty)
//
// The bucket table is followed, at the next double-word boundary, by one
// padding word, the prologue header and footer, and the epilogue header.
const (
	HeaderMagicOffset      = 0x00
	HeaderNumClassesOffset = 0x04
	HeaderMinShiftOffset   = 0x08
	HeaderReservedOffset   = 0x0C
	HeaderBucketsOffset    = 0x10

	// PrologueSize is the size of the permanently allocated prologue block.
	PrologueSize = DWordSize
)
