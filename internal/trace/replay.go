package trace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/btree"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
)

var (
	// ErrMisaligned indicates a payload that is not double-word aligned.
	ErrMisaligned = errors.New("trace: payload misaligned")

	// ErrOutOfBounds indicates a payload extending past the arena.
	ErrOutOfBounds = errors.New("trace: payload outside heap")

	// ErrOverlap indicates two live payloads sharing bytes.
	ErrOverlap = errors.New("trace: payloads overlap")

	// ErrDataLost indicates payload bytes changed while the block was live.
	ErrDataLost = errors.New("trace: payload contents lost")
)

// ReplayOptions controls Replay.
type ReplayOptions struct {
	// VerifyEachOp runs the heap checker after every op.
	VerifyEachOp bool

	// Logger receives per-trace summaries (nil discards).
	Logger *slog.Logger
}

// Result summarizes one replay.
type Result struct {
	Name        string        `json:"name"`
	Ops         int           `json:"ops"`
	PeakPayload int64         `json:"peak_payload"`
	HeapSize    int           `json:"heap_size"`
	Utilization float64       `json:"utilization"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Throughput  float64       `json:"ops_per_sec"`
	Stats       heap.Stats    `json:"stats"`
}

// span is a live payload range [start, end) in the overlap index.
type span struct {
	start, end uint32
	id         int
}

func (s span) Less(than btree.Item) bool {
	return s.start < than.(span).start
}

func newIndex() *btree.BTree {
	return btree.New(8)
}

// replayer holds the per-trace state.
type replayer struct {
	h     *heap.Heap
	ptrs  []heap.Ptr
	sizes []int
	live  *btree.BTree

	cur, peak int64
}

// Replay runs t against a fresh heap from newHeap and checks every block the
// heap hands out: alignment, bounds, no overlap with other live payloads and
// that payload contents survive until release or resize.
func Replay(t *Trace, newHeap func() (*heap.Heap, error), opts ReplayOptions) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h, err := newHeap()
	if err != nil {
		return Result{}, fmt.Errorf("%s: new heap: %w", t.Name, err)
	}
	defer h.Close()

	r := &replayer{
		h:     h,
		ptrs:  make([]heap.Ptr, t.NumIDs),
		sizes: make([]int, t.NumIDs),
		live:  newIndex(),
	}

	start := time.Now()
	for i, op := range t.Ops {
		if err := r.apply(op); err != nil {
			return Result{}, fmt.Errorf("%s: op %d (%s %d): %w", t.Name, i, op.Kind, op.ID, err)
		}
		if opts.VerifyEachOp {
			if err := h.Check(); err != nil {
				return Result{}, fmt.Errorf("%s: after op %d (%s %d): %w", t.Name, i, op.Kind, op.ID, err)
			}
		}
	}
	elapsed := time.Since(start)

	res := Result{
		Name:        t.Name,
		Ops:         len(t.Ops),
		PeakPayload: r.peak,
		HeapSize:    h.Len(),
		Elapsed:     elapsed,
		Stats:       h.GetStats(),
	}
	if res.HeapSize > 0 {
		res.Utilization = float64(res.PeakPayload) / float64(res.HeapSize)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		res.Throughput = float64(res.Ops) / secs
	}

	logger.Debug("trace replayed",
		slog.String("trace", t.Name),
		slog.Int("ops", res.Ops),
		slog.Int("heap", res.HeapSize),
		slog.Float64("util", res.Utilization),
		slog.Duration("elapsed", elapsed))

	return res, nil
}

func (r *replayer) apply(op Op) error {
	switch op.Kind {
	case OpAlloc:
		if r.ptrs[op.ID] != heap.Nil {
			return fmt.Errorf("%w: id %d allocated while still live", ErrMalformed, op.ID)
		}
		p, err := r.h.Allocate(op.Size)
		if err != nil {
			return err
		}
		return r.track(op.ID, p, op.Size)

	case OpResize:
		old, oldSize := r.ptrs[op.ID], r.sizes[op.ID]
		if err := r.verifyData(op.ID); err != nil {
			return err
		}
		p, err := r.h.Resize(old, op.Size)
		if err != nil {
			return err
		}
		r.untrack(op.ID)
		if keep := min(oldSize, op.Size); keep > 0 {
			if err := checkPattern(r.h.Payload(p)[:keep], op.ID); err != nil {
				return err
			}
		}
		return r.track(op.ID, p, op.Size)

	case OpFree:
		if err := r.verifyData(op.ID); err != nil {
			return err
		}
		if err := r.h.Release(r.ptrs[op.ID]); err != nil {
			return err
		}
		r.untrack(op.ID)
		return nil
	}
	return fmt.Errorf("%w: op %q", ErrMalformed, byte(op.Kind))
}

// track validates the new payload of id and fills it with the id's pattern.
func (r *replayer) track(id int, p heap.Ptr, size int) error {
	if p == heap.Nil {
		return nil
	}
	if !format.IsAligned(int(p)) {
		return fmt.Errorf("%w: 0x%X", ErrMisaligned, p)
	}
	end := uint64(p) + uint64(size)
	if end > uint64(r.h.Len()) || r.h.UsableSize(p) < size {
		return fmt.Errorf("%w: [0x%X,0x%X) in heap of %d bytes", ErrOutOfBounds, p, end, r.h.Len())
	}
	if err := r.claim(span{start: p, end: uint32(end), id: id}); err != nil {
		return err
	}

	r.ptrs[id] = p
	r.sizes[id] = size
	fillPattern(r.h.Payload(p)[:size], id)

	r.cur += int64(size)
	r.peak = max(r.peak, r.cur)
	return nil
}

// claim inserts s into the live index unless it overlaps a live payload.
// Only the nearest span on each side can overlap.
func (r *replayer) claim(s span) error {
	var clash *span
	r.live.DescendLessOrEqual(s, func(i btree.Item) bool {
		if o := i.(span); o.end > s.start {
			clash = &o
		}
		return false
	})
	if clash == nil {
		r.live.AscendGreaterOrEqual(s, func(i btree.Item) bool {
			if o := i.(span); o.start < s.end {
				clash = &o
			}
			return false
		})
	}
	if clash != nil {
		return fmt.Errorf("%w: id %d [0x%X,0x%X) and id %d [0x%X,0x%X)",
			ErrOverlap, s.id, s.start, s.end, clash.id, clash.start, clash.end)
	}
	r.live.ReplaceOrInsert(s)
	return nil
}

func (r *replayer) untrack(id int) {
	if r.ptrs[id] != heap.Nil {
		r.live.Delete(span{start: r.ptrs[id]})
		r.cur -= int64(r.sizes[id])
	}
	r.ptrs[id] = heap.Nil
	r.sizes[id] = 0
}

func (r *replayer) verifyData(id int) error {
	if r.ptrs[id] == heap.Nil {
		return nil
	}
	return checkPattern(r.h.Payload(r.ptrs[id])[:r.sizes[id]], id)
}

func patternByte(id, i int) byte {
	return byte(id*131 + i)
}

func fillPattern(b []byte, id int) {
	for i := range b {
		b[i] = patternByte(id, i)
	}
}

func checkPattern(b []byte, id int) error {
	for i, v := range b {
		if want := patternByte(id, i); v != want {
			return fmt.Errorf("%w: id %d byte %d is 0x%02X, expected 0x%02X", ErrDataLost, id, i, v, want)
		}
	}
	return nil
}
