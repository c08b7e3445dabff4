package heap

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/internal/format"
)

// Stats holds allocator counters since New.
type Stats struct {
	GrowCalls        int   // Number of arena growths
	GrowBytes        int64 // Total bytes added via growth
	AllocCalls       int   // Total Allocate() calls with a non-zero size
	AllocFastPath    int   // Allocations served from a free list
	AllocSlowPath    int   // Allocations that required growth
	FreeCalls        int   // Total Release() calls on a live block
	ResizeCalls      int   // Total Resize() calls that moved a block
	BytesAllocated   int64 // Total block bytes allocated (including tags)
	BytesFreed       int64 // Total block bytes released
	SplitCount       int   // Number of block splits
	CoalesceForward  int   // Merges with the following block
	CoalesceBackward int   // Merges with the preceding block
	ListInserts      int   // Free-list insertions
	ListRemoves      int   // Free-list removals
	FitProbes        int   // Free blocks examined by fit search
}

// GetStats returns a snapshot of the heap counters.
func (h *Heap) GetStats() Stats {
	return h.stats
}

// ClassSummary reports the contents of one bucket.
type ClassSummary struct {
	Class  int
	Lo, Hi uint64 // size range; Hi is 0 for the top bucket
	Blocks int
	Bytes  int64
	Max    uint32 // largest block in the bucket
}

// FreeSummary walks every bucket and reports how many free blocks and bytes
// each holds. Buckets are reported in class order, empty ones included.
func (h *Heap) FreeSummary() []ClassSummary {
	k := h.sizeTable.NumClasses()
	out := make([]ClassSummary, k)
	limit := h.a.Len() / format.MinBlockSize

	for class := range k {
		lo, hi := format.ClassBounds(class, h.layout.MinShift, k)
		s := ClassSummary{Class: class, Lo: lo, Hi: hi}
		for p := h.bucketHead(class); p != Nil && s.Blocks <= limit; p = h.succ(p) {
			size := h.blockSize(p)
			s.Blocks++
			s.Bytes += int64(size)
			s.Max = max(s.Max, size)
		}
		out[class] = s
	}
	return out
}

// FreeBytes returns the total size of all free blocks, tags included.
func (h *Heap) FreeBytes() int64 {
	var total int64
	for _, s := range h.FreeSummary() {
		total += s.Bytes
	}
	return total
}

// Print writes a human-readable report of the counters to w.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintf(w, "=== HEAP STATISTICS ===\n")
	fmt.Fprintf(w, "Grow calls:         %d (%d bytes added)\n", s.GrowCalls, s.GrowBytes)
	fmt.Fprintf(w, "Alloc calls:        %d (fast: %d, slow: %d)\n", s.AllocCalls, s.AllocFastPath, s.AllocSlowPath)
	fmt.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Resize calls:       %d\n", s.ResizeCalls)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "Net allocated:      %d\n", s.BytesAllocated-s.BytesFreed)
	fmt.Fprintf(w, "Block splits:       %d\n", s.SplitCount)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	fmt.Fprintf(w, "List inserts:       %d\n", s.ListInserts)
	fmt.Fprintf(w, "List removes:       %d\n", s.ListRemoves)
	fmt.Fprintf(w, "Fit probes:         %d\n", s.FitProbes)
}
