// Package verify provides consistency checks for heapkit heaps.
// All checks operate on the raw arena bytes only.
package verify

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/joshuapare/heapkit/internal/format"
)

// ErrCorrupt is wrapped by every ValidationError.
var ErrCorrupt = errors.New("verify: heap corrupt")

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap lets callers match any violation with errors.Is(err, ErrCorrupt).
func (e *ValidationError) Unwrap() error {
	return ErrCorrupt
}

// AllInvariants validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(data []byte) error {
	if err := Header(data); err != nil {
		return err
	}
	if err := Blocks(data); err != nil {
		return err
	}
	if err := FreeLists(data); err != nil {
		return err
	}
	return nil
}

// Header validates the heap header, the bucket table bounds and the prologue.
func Header(data []byte) error {
	h, err := format.ParseHeader(data)
	if err != nil {
		return &ValidationError{
			Type:    "Header",
			Message: err.Error(),
			Offset:  -1,
		}
	}

	if len(data)%format.DWordSize != 0 {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("arena length %d not double-word aligned", len(data)),
			Offset:  -1,
		}
	}

	if r := format.ReadU32(data, format.HeaderReservedOffset); r != 0 {
		return &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("reserved word is 0x%X, expected 0", r),
			Offset:  format.HeaderReservedOffset,
		}
	}

	want := format.Pack(format.PrologueSize, true)
	pro := h.Prologue()
	for _, off := range []int{pro - format.WordSize, pro} {
		if got := format.ReadU32(data, off); got != want {
			return &ValidationError{
				Type:    "Header",
				Message: fmt.Sprintf("prologue tag 0x%X, expected 0x%X", got, want),
				Offset:  off,
			}
		}
	}

	return nil
}

// Blocks walks every block from the prologue to the epilogue and validates
// tags, alignment, sizes and that no two free blocks are adjacent.
func Blocks(data []byte) error {
	h, err := format.ParseHeader(data)
	if err != nil {
		return &ValidationError{Type: "Blocks", Message: err.Error(), Offset: -1}
	}

	prevFree := false
	count := 0
	for p := h.FirstBlock(); ; {
		if p > len(data) {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("walk ran past arena end 0x%X without an epilogue", len(data)),
				Offset:  p,
			}
		}
		tag := format.ReadU32(data, p-format.WordSize)
		size := format.TagSize(tag)
		alloc := format.TagAlloc(tag)

		if size == 0 {
			if !alloc {
				return &ValidationError{
					Type:    "Blocks",
					Message: "epilogue not marked allocated",
					Offset:  p - format.WordSize,
				}
			}
			if p != len(data) {
				return &ValidationError{
					Type:    "Blocks",
					Message: fmt.Sprintf("epilogue at 0x%X but arena ends at 0x%X", p-format.WordSize, len(data)),
					Offset:  p - format.WordSize,
					Details: map[string]interface{}{"blocks": count},
				}
			}
			return nil
		}

		if tag&(format.DWordMask&^format.AllocBit) != 0 {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("reserved tag bits set: 0x%X", tag),
				Offset:  p - format.WordSize,
			}
		}
		if !format.IsAligned(p) {
			return &ValidationError{
				Type:    "Blocks",
				Message: "payload not double-word aligned",
				Offset:  p,
			}
		}
		if size < format.MinBlockSize {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("block size %d below minimum %d", size, format.MinBlockSize),
				Offset:  p - format.WordSize,
			}
		}
		if uint64(p)+uint64(size) > uint64(len(data)) {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("block size %d overruns arena end 0x%X", size, len(data)),
				Offset:  p - format.WordSize,
			}
		}
		ftr := p + int(size) - format.DWordSize
		if got := format.ReadU32(data, ftr); got != tag {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("footer 0x%X does not match header 0x%X", got, tag),
				Offset:  ftr,
				Details: map[string]interface{}{"header": tag, "footer": got, "payload": p},
			}
		}
		if !alloc && prevFree {
			return &ValidationError{
				Type:    "Blocks",
				Message: "adjacent free blocks were not coalesced",
				Offset:  p - format.WordSize,
			}
		}

		prevFree = !alloc
		count++
		p += int(size)
	}
}

// FreeLists validates the segregated free lists: every node is a free block
// of the bucket's class, predecessor links mirror successor links, no list
// loops, and the listed blocks are exactly the free blocks found by a
// physical walk.
func FreeLists(data []byte) error {
	h, err := format.ParseHeader(data)
	if err != nil {
		return &ValidationError{Type: "FreeLists", Message: err.Error(), Offset: -1}
	}

	physical := physicalFree(data, h)
	listed := roaring.New()
	first := h.FirstBlock()

	for class := range h.NumClasses {
		var prev uint32
		for p := format.ReadU32(data, h.BucketOffset(class)); p != format.NilOffset; {
			off := int(p)
			if off < first || off >= len(data) || !format.IsAligned(off) {
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("bucket %d links to invalid offset 0x%X", class, p),
					Offset:  -1,
					Details: map[string]interface{}{"class": class, "from": prev},
				}
			}
			if listed.Contains(p) {
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("block listed twice or bucket %d loops", class),
					Offset:  off,
					Details: map[string]interface{}{"class": class},
				}
			}
			listed.Add(p)

			tag := format.ReadU32(data, off-format.WordSize)
			if format.TagAlloc(tag) {
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("allocated block on bucket %d", class),
					Offset:  off,
				}
			}
			size := format.TagSize(tag)
			if got := format.SizeClass(size, h.MinShift, h.NumClasses); got != class {
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("block of size %d belongs in bucket %d, found in %d", size, got, class),
					Offset:  off,
				}
			}
			if pred := format.ReadU32(data, off+format.WordSize); pred != prev {
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("predecessor link 0x%X, expected 0x%X", pred, prev),
					Offset:  off + format.WordSize,
					Details: map[string]interface{}{"class": class},
				}
			}

			prev = p
			p = format.ReadU32(data, off)
		}
	}

	if missing := roaring.AndNot(physical, listed); !missing.IsEmpty() {
		return &ValidationError{
			Type:    "FreeLists",
			Message: fmt.Sprintf("%d free block(s) not on any list", missing.GetCardinality()),
			Offset:  int(firstOf(missing)),
		}
	}
	if stray := roaring.AndNot(listed, physical); !stray.IsEmpty() {
		return &ValidationError{
			Type:    "FreeLists",
			Message: fmt.Sprintf("%d listed node(s) are not free blocks", stray.GetCardinality()),
			Offset:  int(firstOf(stray)),
		}
	}

	return nil
}

// physicalFree collects the payload offsets of all free blocks by walking the
// heap. The walk stops at the first malformed tag; Blocks reports those.
func physicalFree(data []byte, h format.Header) *roaring.Bitmap {
	free := roaring.New()
	for p := h.FirstBlock(); p <= len(data); {
		tag := format.ReadU32(data, p-format.WordSize)
		size := format.TagSize(tag)
		if size < format.MinBlockSize || p+int(size) > len(data) {
			break
		}
		if !format.TagAlloc(tag) {
			free.Add(uint32(p))
		}
		p += int(size)
	}
	return free
}

func firstOf(b *roaring.Bitmap) uint32 {
	it := b.Iterator()
	if !it.HasNext() {
		return 0
	}
	return it.Next()
}
