// Package heap implements a general-purpose dynamic memory allocator over a
// single growable arena.
//
// # Overview
//
// A Heap hands out blocks of an arena.Arena through four operations:
//
//	p, err := h.Allocate(64)         // malloc
//	err = h.Release(p)               // free
//	p, err = h.Resize(p, 128)        // realloc
//	p, err = h.AllocateZeroed(8, 16) // calloc
//
// Pointers are arena byte offsets (Ptr). Payload(p) returns the usable bytes
// of a live block; the slice stays valid until the block is released or
// resized because arenas never move existing bytes.
//
// # Block Format
//
// Every block carries a 4-byte header and a 4-byte footer holding the block
// size with the allocated flag in bit 0:
//
//	+--------+---------------------------+--------+
//	| header | payload                   | footer |
//	+--------+---------------------------+--------+
//	p-4      p                           p+s-8
//
// The footer of the physical predecessor sits directly before a block's
// header, so both neighbors are found in O(1). The smallest block is 16
// bytes; every payload is 8-byte aligned.
//
// # Free Space Management
//
// Free blocks are kept in segregated doubly linked lists, one per power-of-two
// size class. The links overlay the first eight payload bytes. The bucket
// heads live in a small header at the start of the arena, so the whole
// allocator state can be inspected from raw bytes (see package verify).
//
// Allocation scans buckets upward from the request's class and takes the first
// block that fits (first fit within a segregated class). Oversized blocks are
// split when the remainder can form a minimum block. Release merges the block
// with free neighbors immediately, so no two free blocks are ever adjacent.
//
// When no block fits the arena grows by max(request, ChunkSize) bytes. The
// new space is merged with a free block at the end of the heap, if any.
//
// # Sentinels
//
// A permanently allocated 8-byte prologue precedes the first block and a
// zero-size allocated epilogue header follows the last one. Neither is ever
// merged, which removes all boundary checks from coalescing.
//
// # Errors
//
//   - ErrOutOfMemory: the arena cannot grow; the heap stays valid
//   - ErrInvalidArgument: negative sizes or a count*size overflow
//   - ErrBadPointer: releasing or resizing something that is not a live block
//
// # Debugging
//
// Options.CheckInvariants verifies the entire heap before and after every
// mutating call and panics on corruption. Set HEAPKIT_LOG_ALLOC=1 to log
// arena growth to stderr for heaps without an explicit logger.
//
// # Thread Safety
//
// A Heap is not safe for concurrent use. Independent heaps share nothing.
package heap
