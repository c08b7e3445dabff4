package trace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/joshuapare/heapkit/heap"
)

// RunAll parses and replays every file in paths on a pool of workers, one
// fresh heap per trace. Results are returned in input order; a failed trace
// leaves a zero Result with only Name set and contributes to the joined
// error.
func RunAll(paths []string, newHeap func() (*heap.Heap, error), workers int, opts ReplayOptions) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("trace: worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]Result, len(paths))
	errs := make([]error, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			t, err := ParseFile(path)
			if err != nil {
				results[i].Name = path
				errs[i] = err
				return
			}
			results[i], errs[i] = Replay(t, newHeap, opts)
			results[i].Name = t.Name
		})
		if err != nil {
			wg.Done()
			results[i].Name = path
			errs[i] = fmt.Errorf("trace: submit %s: %w", path, err)
		}
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
