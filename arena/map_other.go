//go:build !linux && !darwin

package arena

// MapArena falls back to a slice reservation on platforms without mmap.
type MapArena struct {
	MemArena
}

// NewMap reserves limit bytes.
func NewMap(limit int) (*MapArena, error) {
	if limit <= 0 {
		return nil, ErrBadIncrement
	}
	return &MapArena{MemArena: *NewMem(limit)}, nil
}

// Compile-time interface check
var _ Arena = (*MapArena)(nil)
