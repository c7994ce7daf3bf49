package gcheap

import "errors"

var (
	// ErrOutOfMemory is returned by the typed allocation helpers when no
	// free block can satisfy the request, even after merging free blocks.
	ErrOutOfMemory = errors.New("gcheap: out of memory")

	// ErrBadAlignment is returned when the requested alignment is not a
	// power of two or is too small to hold a block header.
	ErrBadAlignment = errors.New("gcheap: alignment must be a power of two and at least the block header size")

	// ErrHeapTooSmall is returned when the requested capacity cannot hold
	// a single block.
	ErrHeapTooSmall = errors.New("gcheap: capacity too small for a single block")

	// ErrTypeTooSmall is returned by AllocateAs when the descriptor's size
	// is smaller than the Go type being allocated.
	ErrTypeTooSmall = errors.New("gcheap: type descriptor smaller than the allocated type")
)
