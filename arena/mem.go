package arena

import "fmt"

// MemArena is a slice-backed arena. The whole reservation is made once at
// construction; Grow only reslices, so the backing array never moves.
type MemArena struct {
	buf   []byte
	grows int
}

// NewMem creates a MemArena that can grow up to limit bytes.
func NewMem(limit int) *MemArena {
	if limit < 0 {
		limit = 0
	}
	return &MemArena{buf: make([]byte, 0, limit)}
}

// Grow extends the arena by n bytes.
func (m *MemArena) Grow(n int) (int, error) {
	if n <= 0 {
		return 0, ErrBadIncrement
	}
	base := len(m.buf)
	if n > cap(m.buf)-base {
		return 0, fmt.Errorf("%w: grow by %d with %d of %d bytes used",
			ErrExhausted, n, base, cap(m.buf))
	}
	m.buf = m.buf[:base+n]
	m.grows++
	return base, nil
}

// Bytes returns the grown region.
func (m *MemArena) Bytes() []byte { return m.buf }

// Len returns the grown size.
func (m *MemArena) Len() int { return len(m.buf) }

// Cap returns the reservation size.
func (m *MemArena) Cap() int { return cap(m.buf) }

// Grows returns the number of successful Grow calls.
func (m *MemArena) Grows() int { return m.grows }

// Close releases the reservation. The arena must not be used afterwards.
func (m *MemArena) Close() error {
	m.buf = nil
	return nil
}

// Compile-time interface check
var _ Arena = (*MemArena)(nil)
