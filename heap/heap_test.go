package heap

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/arena"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

func Test_Heap_New_Layout(t *testing.T) {
	h := newTestHeap(t, 1<<20)

	first := format.Header{NumClasses: DefaultConfig.NumClasses, MinShift: DefaultConfig.MinShift}.FirstBlock()
	require.Equal(t, first+DefaultChunkSize, h.Len())
	require.NoError(t, h.Check())

	// the whole initial chunk is one free block in its bucket
	summary := h.FreeSummary()
	require.Len(t, summary, DefaultConfig.NumClasses)
	require.Equal(t, 1, summary[8].Blocks)
	require.Equal(t, int64(DefaultChunkSize), summary[8].Bytes)
	require.Equal(t, 1, h.GetStats().GrowCalls)
}

func Test_Heap_New_Errors(t *testing.T) {
	t.Run("arena too small", func(t *testing.T) {
		_, err := New(arena.NewMem(64), nil)
		require.ErrorIs(t, err, ErrOutOfMemory)
	})

	t.Run("arena not empty", func(t *testing.T) {
		a := arena.NewMem(1 << 16)
		_, err := a.Grow(8)
		require.NoError(t, err)
		_, err = New(a, nil)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("bad size classes", func(t *testing.T) {
		_, err := New(arena.NewMem(1<<16), &Options{SizeClasses: &SizeClassConfig{NumClasses: 0, MinShift: 4}})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func Test_Heap_Allocate_Zero(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	before, stats := h.Len(), h.GetStats()
	snapshot := append([]byte(nil), h.Bytes()...)

	p, err := h.Allocate(0)
	require.NoError(t, err)
	require.Equal(t, Nil, p)
	require.Equal(t, before, h.Len())
	require.Equal(t, stats, h.GetStats())
	require.Equal(t, snapshot, h.Bytes())
}

func Test_Heap_Allocate_Negative(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	_, err := h.Allocate(-1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func Test_Heap_Allocate_TooLarge(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	_, err := h.Allocate(math.MaxInt)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.NoError(t, h.Check())
}

func Test_Heap_Allocate_AlignmentAndCapacity(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	for size := 1; size <= 600; size += 7 {
		p, err := h.Allocate(size)
		require.NoError(t, err)
		require.Zero(t, p%format.DWordSize, "size %d at 0x%X", size, p)
		require.GreaterOrEqual(t, h.UsableSize(p), size)
		require.Len(t, h.Payload(p), h.UsableSize(p))
	}
}

func Test_Heap_ReuseReleasedSmallBlock(t *testing.T) {
	h := newTestHeap(t, 1<<20)

	a, err := h.Allocate(16)
	require.NoError(t, err)
	b, err := h.Allocate(16)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	require.NoError(t, h.Release(a))
	c, err := h.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, a, c, "released block of the same class should be reused")
}

func Test_Heap_SingleGrowthThenSplits(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	grows := 0
	h.onGrow = func(int) { grows++ }

	big, err := h.Allocate(4096)
	require.NoError(t, err)
	require.Equal(t, 1, grows, "4096 bytes exceeds the initial chunk once tags are added")

	require.NoError(t, h.Release(big))
	require.Equal(t, 1, freeBlocks(h), "released block merges with the remainder")

	a, err := h.Allocate(2000)
	require.NoError(t, err)
	b, err := h.Allocate(2000)
	require.NoError(t, err)
	require.Equal(t, big, a, "first split starts at the released block")
	require.Equal(t, a+2008, b)
	require.Equal(t, 1, grows, "both 2000-byte blocks come from the released block")
	require.NoError(t, h.Check())
}

func Test_Heap_ResizeToZero(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	p, err := h.Allocate(100)
	require.NoError(t, err)

	q, err := h.Resize(p, 0)
	require.NoError(t, err)
	require.Equal(t, Nil, q)

	// p is free now
	require.ErrorIs(t, h.Release(p), ErrBadPointer)
	require.Equal(t, 1, freeBlocks(h))
}

func Test_Heap_Resize_PreservesContents(t *testing.T) {
	h := newTestHeap(t, 1<<20)

	p, err := h.Allocate(40)
	require.NoError(t, err)
	fill(h, p, 7)
	n := h.UsableSize(p)

	// grow
	q, err := h.Resize(p, 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, h.UsableSize(q), 1000)
	requireFilled(t, h, q, 7, n)

	// shrink
	fill(h, q, 11)
	r, err := h.Resize(q, 10)
	require.NoError(t, err)
	requireFilled(t, h, r, 11, 10)

	// Nil behaves as Allocate
	s, err := h.Resize(Nil, 32)
	require.NoError(t, err)
	require.NotEqual(t, Nil, s)
	require.Equal(t, 2, h.GetStats().ResizeCalls, "Resize(Nil, n) is counted as an allocation")
}

func Test_Heap_Resize_FailureLeavesBlock(t *testing.T) {
	h := newTestHeap(t, 8192)

	p, err := h.Allocate(3000)
	require.NoError(t, err)
	fill(h, p, 3)
	before := h.Len()

	_, err = h.Resize(p, 6000)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorIs(t, err, arena.ErrExhausted)

	require.Equal(t, before, h.Len())
	require.Zero(t, h.GetStats().ResizeCalls, "a failed resize moves nothing")
	requireFilled(t, h, p, 3, h.UsableSize(p))
	require.NoError(t, h.Check())
	require.NoError(t, h.Release(p))
}

func Test_Heap_Resize_BadPointer(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	_, err := h.Resize(12, 40)
	require.ErrorIs(t, err, ErrBadPointer)
	_, err = h.Resize(Nil, -1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func Test_Heap_OutOfMemory_HeapStaysUsable(t *testing.T) {
	h := newTestHeap(t, 8192)

	_, err := h.Allocate(1 << 20)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.NoError(t, h.Check())

	p, err := h.Allocate(128)
	require.NoError(t, err)
	require.NoError(t, h.Release(p))
}

func Test_Heap_AllocateZeroed(t *testing.T) {
	h := newTestHeap(t, 1<<20)

	// dirty a block and hand it back
	p, err := h.Allocate(256)
	require.NoError(t, err)
	fill(h, p, 0x40)
	require.NoError(t, h.Release(p))

	q, err := h.AllocateZeroed(16, 16)
	require.NoError(t, err)
	require.Equal(t, p, q, "the dirtied block is reused")
	for i, v := range h.Payload(q) {
		require.Zero(t, v, "byte %d", i)
	}

	z, err := h.AllocateZeroed(0, 100)
	require.NoError(t, err)
	require.Equal(t, Nil, z)
}

func Test_Heap_AllocateZeroed_Overflow(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	before := h.Len()

	_, err := h.AllocateZeroed(math.MaxInt, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = h.AllocateZeroed(-1, 8)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, before, h.Len())
}

func Test_Heap_Release_BadPointers(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	p, err := h.Allocate(64)
	require.NoError(t, err)

	require.NoError(t, h.Release(Nil))
	require.ErrorIs(t, h.Release(p+4), ErrBadPointer, "unaligned")
	require.ErrorIs(t, h.Release(p+8), ErrBadPointer, "inside a payload")
	require.ErrorIs(t, h.Release(8), ErrBadPointer, "inside the header")
	require.ErrorIs(t, h.Release(Ptr(h.Len()+64)), ErrBadPointer, "past the arena")

	require.NoError(t, h.Release(p))
	require.ErrorIs(t, h.Release(p), ErrBadPointer, "double release")
	require.NoError(t, h.Check())
}

func Test_Heap_CoalesceAllNeighbors(t *testing.T) {
	h := newTestHeap(t, 1<<20)

	a, err := h.Allocate(100)
	require.NoError(t, err)
	b, err := h.Allocate(100)
	require.NoError(t, err)
	c, err := h.Allocate(100)
	require.NoError(t, err)
	require.Equal(t, 1, freeBlocks(h))

	require.NoError(t, h.Release(b))
	require.Equal(t, 2, freeBlocks(h))

	require.NoError(t, h.Release(a)) // merges forward into b
	require.Equal(t, 2, freeBlocks(h))

	require.NoError(t, h.Release(c)) // merges both ways
	require.Equal(t, 1, freeBlocks(h))
	require.Equal(t, 1, listedBlocks(h))
	require.Equal(t, int64(DefaultChunkSize), h.FreeBytes())

	s := h.GetStats()
	require.Equal(t, 1, s.CoalesceBackward)
	require.Equal(t, 2, s.CoalesceForward)
}

func Test_Heap_Walk_Stops(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	for range 4 {
		_, err := h.Allocate(32)
		require.NoError(t, err)
	}
	seen := 0
	h.Walk(func(Ptr, int, bool) bool {
		seen++
		return seen < 2
	})
	require.Equal(t, 2, seen)
}

func Test_Heap_SizeClassPresets(t *testing.T) {
	for _, cfg := range []SizeClassConfig{ConfigCompact, ConfigDefault, ConfigWide} {
		t.Run(cfg.Name, func(t *testing.T) {
			h, err := New(arena.NewMem(1<<20), &Options{SizeClasses: &cfg, CheckInvariants: true})
			require.NoError(t, err)

			var ptrs []Ptr
			for i := range 50 {
				p, err := h.Allocate(8 + i*97)
				require.NoError(t, err)
				ptrs = append(ptrs, p)
			}
			for i := 0; i < len(ptrs); i += 2 {
				require.NoError(t, h.Release(ptrs[i]))
			}
			require.Len(t, h.FreeSummary(), cfg.NumClasses)
			require.NoError(t, h.Check())
		})
	}
}

func Test_Heap_Check_DetectsCorruption(t *testing.T) {
	h, err := New(arena.NewMem(1<<20), nil)
	require.NoError(t, err)
	p, err := h.Allocate(64)
	require.NoError(t, err)

	// clobber the footer
	format.PutU32(h.Bytes(), int(h.ftrp(p)), 0xDEAD0)

	err = h.Check()
	require.Error(t, err)
	require.True(t, errors.Is(err, verify.ErrCorrupt))
}

func Test_Heap_CheckInvariants_Panics(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	p, err := h.Allocate(64)
	require.NoError(t, err)

	format.PutU32(h.Bytes(), int(h.ftrp(p)), 0xDEAD0)

	require.Panics(t, func() {
		_, _ = h.Allocate(8)
	})
}

func Test_Heap_Close(t *testing.T) {
	a, err := arena.NewMap(1 << 20)
	require.NoError(t, err)
	h, err := New(a, nil)
	require.NoError(t, err)
	_, err = h.Allocate(100)
	require.NoError(t, err)
	require.NoError(t, h.Close())
}
