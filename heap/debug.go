package heap

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/verify"
)

// Check runs the full consistency checker over the arena and returns the
// first violation found, or nil.
func (h *Heap) Check() error {
	return verify.AllInvariants(h.a.Bytes())
}

// mustCheck panics if invariant checking is enabled and the heap is corrupt.
func (h *Heap) mustCheck(op string) {
	if !h.check {
		return
	}
	if err := h.Check(); err != nil {
		panic(fmt.Sprintf("heap: %s: %v", op, err))
	}
}
