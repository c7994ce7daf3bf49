// Package gcheap implements a managed heap with a precise, non-moving
// mark-and-sweep garbage collector over a fixed-size contiguous byte region.
//
// Objects are allocated from the region by a first-fit free-list allocator.
// Each allocation is described by a TypeDescriptor that records the object
// size, a destructor and the byte offsets of managed pointer fields. The
// collector marks everything reachable from the registered roots using the
// Deutsch-Schorr-Waite pointer-reversal algorithm, which needs no mark stack:
// the traversal state lives in the object graph itself, and the block header
// word doubles as the visit cursor. A single linear sweep then destroys dead
// objects and rebuilds the free list.
//
// The heap is single-threaded: one mutator, stop-the-world collection, no
// locks. All state is owned by the Heap value; nothing here is safe for
// concurrent use.
package gcheap

import (
	"time"
	"unsafe"

	"github.com/gcheap-org/gcheap/internal/ptrutil"
)

// Heap is a managed heap over one contiguous arena. The zero value is not
// usable; construct with New. A Heap is owned by a single goroutine; see the
// package comment.
type Heap struct {
	storage []byte // backing region; keeps the arena alive
	start   uintptr
	end     uintptr
	align   uintptr

	freeList *blockHeader
	roots    []uintptr // payload addresses, registration order

	// collection statistics, see ReadGCStats
	numGC      int64
	lastGC     time.Time
	pauseTotal time.Duration
	pauses     []time.Duration
}

// New constructs a heap with the given payload capacity and alignment. The
// backing region is acquired once, here; it is capacity plus one header
// large. align must be a power of two, at least 4 bytes, and big enough to
// hold a block header (two machine words).
func New(capacity, align uintptr) (*Heap, error) {
	if align == 0 || align&(align-1) != 0 || align < blockHeaderSize || align < 4 {
		return nil, ErrBadAlignment
	}
	if capacity < align {
		return nil, ErrHeapTooSmall
	}

	// Over-allocate so the arena start can be rounded up to the alignment.
	raw := make([]byte, capacity+2*align)
	base := alignUp(uintptr(unsafe.Pointer(&raw[0])), align)
	arenaSize := (capacity + align) &^ (align - 1)

	h := &Heap{
		storage: raw,
		start:   base,
		end:     base + arenaSize,
		align:   align,
	}

	// The arena starts as a single free block spanning everything after the
	// first header.
	first := headerAt(h.start)
	first.word = 0
	first.makeFree(nil, arenaSize-align)
	h.freeList = first

	return h, nil
}

// Size returns the arena size in bytes, headers included.
func (h *Heap) Size() uintptr {
	return h.end - h.start
}

// Alignment returns the heap alignment, which is also the header size.
func (h *Heap) Alignment() uintptr {
	return h.align
}

// Contains reports whether p addresses a payload inside the arena.
func (h *Heap) Contains(p unsafe.Pointer) bool {
	addr := uintptr(ptrutil.NoEscape(p))
	return addr >= h.start+h.align && addr < h.end
}

// PayloadLive reports whether p is the payload of a used block, by walking
// the arena. Pointers into reclaimed blocks report false; after a sweep the
// reclaimed block may have been absorbed into a larger free block, so this
// cannot rely on a header sitting directly before p.
func (h *Heap) PayloadLive(p unsafe.Pointer) bool {
	addr := uintptr(ptrutil.NoEscape(p))
	for a := h.start; a < h.end; {
		blk := headerAt(a)
		if blk.data(h.align) == addr {
			return blk.used()
		}
		a = blk.following(h.align)
	}
	return false
}

// blockFromPayload maps a payload address back to its block header.
func (h *Heap) blockFromPayload(payload uintptr) *blockHeader {
	if heapAsserts {
		if payload < h.start+h.align || payload >= h.end {
			heapPanic("payload pointer outside the arena")
		}
		if payload&(h.align-1) != 0 {
			heapPanic("payload pointer not aligned to a block boundary")
		}
	}
	return headerAt(payload - h.align)
}

// Allocate returns a zeroed payload for an object of the given type, or nil
// if no free block can satisfy the request even after merging free blocks.
// If isRoot is set, the fresh payload is also registered as a root.
func (h *Heap) Allocate(t *TypeDescriptor, isRoot bool) unsafe.Pointer {
	if heapAsserts && t == nil {
		heapPanic("allocation with a nil type descriptor")
	}
	if h.freeList == nil {
		// There are no free blocks at all, don't even try.
		return nil
	}

	result := h.tryAllocate(t)
	if result == nil {
		// No sufficiently sized block found using first-fit; merge adjacent
		// free blocks and try again.
		h.mergeBlocks()
		result = h.tryAllocate(t)
	}
	if result != nil && isRoot {
		h.RegisterRoot(result)
	}
	return result
}

// AllocateAs allocates an object of type T described by t and returns a
// typed pointer to it. The descriptor must be at least as large as T.
func AllocateAs[T any](h *Heap, t *TypeDescriptor, isRoot bool) (*T, error) {
	if t.Size() < unsafe.Sizeof(*new(T)) {
		return nil, ErrTypeTooSmall
	}
	p := h.Allocate(t, isRoot)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return (*T)(p), nil
}

// Deallocate returns the block holding the given payload to the free list.
// The object's destructor is not called, and adjacent free blocks are not
// merged; merging happens during sweep or on an allocation retry. Must not
// be called during a collection cycle.
func (h *Heap) Deallocate(p unsafe.Pointer) {
	blk := h.blockFromPayload(uintptr(ptrutil.NoEscape(p)))
	if heapAsserts && blk.free() {
		heapPanic("deallocation of an unused block")
	}
	if heapAsserts && blk.marked() {
		heapPanic("deallocation during garbage collection")
	}
	blk.setNext(h.freeList)
	h.freeList = blk
}

// RegisterRoot appends a payload pointer to the roots list. Duplicates are
// kept as is. Registering a pointer that is not a payload allocated from
// this heap is undefined.
func (h *Heap) RegisterRoot(p unsafe.Pointer) {
	addr := uintptr(ptrutil.NoEscape(p))
	if heapAsserts {
		// blockFromPayload validates the address range and alignment.
		if h.blockFromPayload(addr).free() {
			heapPanic("root registered for a free block")
		}
	}
	h.roots = append(h.roots, addr)
}

// RemoveRoot removes the first registered root equal to p and reports
// whether one was found.
func (h *Heap) RemoveRoot(p unsafe.Pointer) bool {
	addr := uintptr(ptrutil.NoEscape(p))
	for i, root := range h.roots {
		if root == addr {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return true
		}
	}
	return false
}

// NumRoots returns the number of registered roots.
func (h *Heap) NumRoots() int {
	return len(h.roots)
}
