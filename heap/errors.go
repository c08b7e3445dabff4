package heap

import "errors"

var (
	// ErrOutOfMemory indicates the arena could not grow enough to satisfy a request.
	// The heap remains valid and usable afterwards.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrInvalidArgument indicates a negative size, a count*size overflow, or a
	// non-empty arena passed to New.
	ErrInvalidArgument = errors.New("heap: invalid argument")

	// ErrBadPointer indicates a pointer that is not the payload of a live block.
	ErrBadPointer = errors.New("heap: bad pointer")
)
