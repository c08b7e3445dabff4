package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/arena"
)

// newTestHeap creates a heap over a MemArena with invariant checking on.
func newTestHeap(t testing.TB, limit int) *Heap {
	t.Helper()
	h, err := New(arena.NewMem(limit), &Options{CheckInvariants: true})
	require.NoError(t, err)
	return h
}

func newArena(limit int) arena.Arena {
	return arena.NewMem(limit)
}

// fill writes a recognizable pattern into the payload of p.
func fill(h *Heap, p Ptr, seed byte) {
	b := h.Payload(p)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// requireFilled checks the first n bytes of p still hold the pattern.
func requireFilled(t testing.TB, h *Heap, p Ptr, seed byte, n int) {
	t.Helper()
	b := h.Payload(p)
	require.GreaterOrEqual(t, len(b), n)
	for i := range n {
		require.Equal(t, seed+byte(i), b[i], "byte %d of 0x%X", i, p)
	}
}

// freeBlocks returns the number of free blocks found by a physical walk.
func freeBlocks(h *Heap) int {
	n := 0
	h.Walk(func(_ Ptr, _ int, allocated bool) bool {
		if !allocated {
			n++
		}
		return true
	})
	return n
}

// listedBlocks returns the number of blocks on all free lists.
func listedBlocks(h *Heap) int {
	n := 0
	for _, s := range h.FreeSummary() {
		n += s.Blocks
	}
	return n
}
