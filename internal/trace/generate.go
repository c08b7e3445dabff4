package trace

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidOptions indicates generator options that cannot produce a trace.
var ErrInvalidOptions = errors.New("trace: invalid generator options")

// GenOptions controls Generate.
type GenOptions struct {
	Name    string
	Ops     int   // total ops; at least 2*IDs
	IDs     int   // every id is allocated once and released once
	MaxSize int   // request sizes are uniform in [1, MaxSize]
	Seed    int64 // same seed, same trace
}

// Generate produces a random but well-formed trace: each id is allocated,
// optionally resized any number of times, and released before the end.
// Ops beyond 2*IDs become resizes.
func Generate(opts GenOptions) (*Trace, error) {
	if opts.IDs <= 0 || opts.MaxSize <= 0 || opts.Ops < 2*opts.IDs {
		return nil, fmt.Errorf("%w: ops=%d ids=%d max-size=%d (need ops >= 2*ids > 0, max-size > 0)",
			ErrInvalidOptions, opts.Ops, opts.IDs, opts.MaxSize)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	t := &Trace{
		Name:   opts.Name,
		NumIDs: opts.IDs,
		Weight: 1,
		Ops:    make([]Op, 0, opts.Ops),
	}

	resizes := opts.Ops - 2*opts.IDs
	next := 0
	var live []int
	sizes := make([]int, opts.IDs)
	var cur, peak int

	for next < opts.IDs || len(live) > 0 {
		if next < opts.IDs && (len(live) == 0 || rng.Intn(2) == 0) {
			size := rng.Intn(opts.MaxSize) + 1
			t.Ops = append(t.Ops, Op{Kind: OpAlloc, ID: next, Size: size})
			sizes[next] = size
			cur += size
			live = append(live, next)
			next++
		} else {
			i := rng.Intn(len(live))
			id := live[i]
			frees := len(live) + opts.IDs - next
			lastChance := next == opts.IDs && len(live) == 1
			if resizes > 0 && (lastChance || rng.Intn(resizes+frees) < resizes) {
				size := rng.Intn(opts.MaxSize) + 1
				t.Ops = append(t.Ops, Op{Kind: OpResize, ID: id, Size: size})
				cur += size - sizes[id]
				sizes[id] = size
				resizes--
			} else {
				t.Ops = append(t.Ops, Op{Kind: OpFree, ID: id})
				cur -= sizes[id]
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]
			}
		}
		peak = max(peak, cur)
	}

	t.SuggestedHeap = peak
	return t, nil
}
