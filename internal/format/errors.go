package format

import "errors"

var (
	// ErrSignatureMismatch indicates the buffer does not start with HeapMagic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadClasses indicates an unusable size-class count or base exponent.
	ErrBadClasses = errors.New("format: bad size-class parameters")
)
