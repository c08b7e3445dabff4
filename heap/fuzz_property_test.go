package heap

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type liveBlock struct {
	size int
	seed byte
}

// requireDisjoint checks that no two live payloads share bytes.
func requireDisjoint(t *testing.T, h *Heap, live map[Ptr]liveBlock) {
	t.Helper()
	ptrs := make([]Ptr, 0, len(live))
	for p := range live {
		ptrs = append(ptrs, p)
	}
	sort.Slice(ptrs, func(i, j int) bool { return ptrs[i] < ptrs[j] })
	for i := 1; i < len(ptrs); i++ {
		prevEnd := int(ptrs[i-1]) + h.UsableSize(ptrs[i-1])
		require.LessOrEqual(t, prevEnd, int(ptrs[i]), "payloads 0x%X and 0x%X overlap", ptrs[i-1], ptrs[i])
	}
}

// Test_Fuzz_RandomOps_GuardInvariants performs random allocate, release,
// resize and zeroed allocations with the checker enabled on every call, and
// verifies payload contents and disjointness along the way.
func Test_Fuzz_RandomOps_GuardInvariants(t *testing.T) {
	h := newTestHeap(t, 8<<20)
	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
	live := make(map[Ptr]liveBlock)
	var order []Ptr

	pick := func() (int, Ptr) {
		i := rng.Intn(len(order))
		return i, order[i]
	}
	drop := func(i int) {
		order[i] = order[len(order)-1]
		order = order[:len(order)-1]
	}

	for step := range 2000 {
		switch op := rng.Intn(10); {
		case op < 4 || len(order) == 0: // Allocate
			size := 1 + rng.Intn(2048)
			p, err := h.Allocate(size)
			require.NoError(t, err, "step %d", step)
			_, dup := live[p]
			require.False(t, dup, "step %d: 0x%X handed out twice", step, p)
			seed := byte(step)
			fill(h, p, seed)
			live[p] = liveBlock{size: size, seed: seed}
			order = append(order, p)

		case op < 7: // Release
			i, p := pick()
			requireFilled(t, h, p, live[p].seed, live[p].size)
			require.NoError(t, h.Release(p), "step %d", step)
			delete(live, p)
			drop(i)

		case op < 9: // Resize
			i, p := pick()
			old := live[p]
			size := 1 + rng.Intn(4096)
			q, err := h.Resize(p, size)
			require.NoError(t, err, "step %d", step)
			requireFilled(t, h, q, old.seed, min(old.size, size))
			delete(live, p)
			drop(i)
			fill(h, q, old.seed)
			live[q] = liveBlock{size: size, seed: old.seed}
			order = append(order, q)

		default: // AllocateZeroed
			n, size := 1+rng.Intn(16), 1+rng.Intn(64)
			p, err := h.AllocateZeroed(n, size)
			require.NoError(t, err, "step %d", step)
			for _, v := range h.Payload(p) {
				require.Zero(t, v)
			}
			seed := byte(step)
			fill(h, p, seed)
			live[p] = liveBlock{size: n * size, seed: seed}
			order = append(order, p)
		}

		if step%50 == 0 {
			requireDisjoint(t, h, live)
			require.Equal(t, freeBlocks(h), listedBlocks(h), "step %d", step)
		}
	}

	for _, p := range order {
		require.NoError(t, h.Release(p))
	}
	require.Equal(t, 1, freeBlocks(h), "everything released coalesces to one block")
}

// Test_Heap_SteadyState_Bounded runs a long alloc/free mix with a bounded
// live set and checks the arena stays bounded.
func Test_Heap_SteadyState_Bounded(t *testing.T) {
	h, err := New(newArena(16<<20), nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	var live []Ptr

	for range 10000 {
		if len(live) < 64 && (len(live) < 32 || rng.Intn(2) == 0) {
			p, err := h.Allocate(1 + rng.Intn(512))
			require.NoError(t, err)
			live = append(live, p)
		} else {
			j := rng.Intn(len(live))
			require.NoError(t, h.Release(live[j]))
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}

	require.NoError(t, h.Check())
	// 64 blocks of at most 528 bytes never need more than a few chunks.
	require.Less(t, h.Len(), 256<<10)
}

// Test_Heap_SameSizeCycles_NoGrowth allocates and releases one size over and
// over; the released block must be reused every time.
func Test_Heap_SameSizeCycles_NoGrowth(t *testing.T) {
	h, err := New(newArena(1<<20), nil)
	require.NoError(t, err)
	grows := 0
	h.onGrow = func(int) { grows++ }
	before := h.Len()

	for i := range 10000 {
		p, err := h.Allocate(200)
		require.NoError(t, err, "cycle %d", i)
		require.NoError(t, h.Release(p), "cycle %d", i)
	}

	require.Zero(t, grows)
	require.Equal(t, before, h.Len())
	require.Equal(t, 1, freeBlocks(h))
	require.NoError(t, h.Check())
}
