// Package verify validates heapkit heaps.
//
// # Overview
//
// Every check in this package works from the raw arena bytes, the same bytes
// a heap.Heap manages. Nothing is trusted beyond what the header, the
// boundary tags and the free-list links say, so a corrupted heap (or a heap
// dumped from another process) can be inspected without constructing an
// allocator.
//
// Validation categories:
//   - Header: magic, size-class parameters, reserved word, prologue tags
//   - Blocks: header/footer agreement, alignment, minimum size, epilogue
//     position, and no two physically adjacent free blocks
//   - FreeLists: bucket membership by size class, predecessor/successor
//     symmetry, loop detection, and exact agreement between the listed
//     blocks and the free blocks found by a physical walk
//
// # Quick Start
//
//	if err := verify.AllInvariants(h.Bytes()); err != nil {
//	    fmt.Printf("heap corrupt: %v\n", err)
//	}
//
// # ValidationError
//
// All validation functions return *ValidationError on failure. It unwraps to
// ErrCorrupt:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Printf("%s at 0x%X: %s\n", verr.Type, verr.Offset, verr.Message)
//	}
//
// Offset is -1 when the violation has no single location.
//
// # Cost
//
// AllInvariants is O(arena size). It is meant for tests and for heaps built
// with heap.Options.CheckInvariants, never for production hot paths.
package verify
