//go:build linux || darwin

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MapArena reserves address space with an inaccessible anonymous mapping and
// commits pages with mprotect as the arena grows. The base address is fixed
// for the life of the mapping.
type MapArena struct {
	region    []byte // full reservation, PROT_NONE beyond committed
	brk       int    // logical end of the arena
	committed int    // end of the read-write prefix, page aligned
	pageSize  int
	grows     int
}

// NewMap reserves limit bytes (rounded up to the page size) of address space.
func NewMap(limit int) (*MapArena, error) {
	if limit <= 0 {
		return nil, ErrBadIncrement
	}
	page := unix.Getpagesize()
	limit = roundUp(limit, page)

	region, err := unix.Mmap(-1, 0, limit, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("arena: reserve %d bytes: %w", limit, err)
	}

	return &MapArena{region: region, pageSize: page}, nil
}

// Grow extends the arena by n bytes, committing whole pages as needed.
func (m *MapArena) Grow(n int) (int, error) {
	if m.region == nil {
		return 0, ErrClosed
	}
	if n <= 0 {
		return 0, ErrBadIncrement
	}
	if n > len(m.region)-m.brk {
		return 0, fmt.Errorf("%w: grow by %d with %d of %d bytes used",
			ErrExhausted, n, m.brk, len(m.region))
	}

	newBrk := m.brk + n
	if newBrk > m.committed {
		end := min(roundUp(newBrk, m.pageSize), len(m.region))
		if err := unix.Mprotect(m.region[m.committed:end], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, fmt.Errorf("%w: commit [%d,%d): %w", ErrExhausted, m.committed, end, err)
		}
		m.committed = end
	}

	base := m.brk
	m.brk = newBrk
	m.grows++
	return base, nil
}

// Bytes returns the committed logical region.
func (m *MapArena) Bytes() []byte { return m.region[:m.brk] }

// Len returns the logical size.
func (m *MapArena) Len() int { return m.brk }

// Cap returns the reservation size.
func (m *MapArena) Cap() int { return len(m.region) }

// Grows returns the number of successful Grow calls.
func (m *MapArena) Grows() int { return m.grows }

// Close unmaps the reservation. Closing twice is a no-op.
func (m *MapArena) Close() error {
	if m.region == nil {
		return nil
	}
	err := unix.Munmap(m.region)
	m.region = nil
	m.brk = 0
	m.committed = 0
	return err
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}

// Compile-time interface check
var _ Arena = (*MapArena)(nil)
