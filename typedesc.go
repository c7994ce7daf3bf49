package gcheap

import (
	"fmt"
	"unsafe"

	"github.com/gcheap-org/gcheap/internal/hdr"
)

// maxPointerOffsets is the maximum number of managed pointer fields a single
// type may declare. The offset list is stored inline in the descriptor so
// that the sentinel cell and the descriptor live in one allocation.
const maxPointerOffsets = 15

// A TypeDescriptor describes one managed type: the payload size in bytes, a
// destructor callback and the byte offsets of managed pointer fields within
// the payload. Descriptors are immutable after construction and must outlive
// every object of their type; NewType keeps each descriptor registered in a
// package-level registry for exactly that reason.
//
// The offset list is terminated by a sentinel cell holding the negative
// distance from the sentinel back to the descriptor itself. The marker walks
// the list one cell at a time with no other state, and when it reads a
// negative cell it adds that value to the cell's own address to get the
// descriptor back. The cells therefore have to sit in the same allocation as
// the descriptor header, which is why they are an inline array rather than a
// slice.
type TypeDescriptor struct {
	size    uintptr
	destroy func(unsafe.Pointer)
	name    string
	noffs   int
	cells   [maxPointerOffsets + 1]int
}

// NewType creates and registers a descriptor for a managed type.
//
// Every offset must address an aligned pointer-sized slot inside the payload.
// The destructor may be nil for types that need no finalization. It is called
// with the payload pointer of each dying object during sweep and must not
// allocate from or free into the heap.
func NewType(name string, size uintptr, destroy func(unsafe.Pointer), offsets ...int) (*TypeDescriptor, error) {
	if size == 0 {
		return nil, fmt.Errorf("gcheap: type %q has zero size", name)
	}
	if len(offsets) > maxPointerOffsets {
		return nil, fmt.Errorf("gcheap: type %q declares %d pointer offsets, limit is %d",
			name, len(offsets), maxPointerOffsets)
	}
	t := &TypeDescriptor{
		size:    size,
		destroy: destroy,
		name:    name,
		noffs:   len(offsets),
	}
	for i, off := range offsets {
		if off < 0 || uintptr(off)+hdr.WordSize > size {
			return nil, fmt.Errorf("gcheap: type %q: offset %d outside the payload", name, off)
		}
		if off%int(hdr.WordSize) != 0 {
			return nil, fmt.Errorf("gcheap: type %q: offset %d is not pointer-aligned", name, off)
		}
		t.cells[i] = off
	}
	t.cells[t.noffs] = -int(t.end() - t.base())
	registerType(t)
	return t, nil
}

// MustNewType is like NewType but panics on error. Intended for descriptors
// built from package-level variables.
func MustNewType(name string, size uintptr, destroy func(unsafe.Pointer), offsets ...int) *TypeDescriptor {
	t, err := NewType(name, size, destroy, offsets...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the type name. Diagnostics only; the collector never looks at
// it.
func (t *TypeDescriptor) Name() string {
	return t.name
}

// Size returns the payload size in bytes.
func (t *TypeDescriptor) Size() uintptr {
	return t.size
}

// NumOffsets returns the number of managed pointer fields.
func (t *TypeDescriptor) NumOffsets() int {
	return t.noffs
}

// Offsets returns a copy of the pointer-field offsets, sentinel excluded.
func (t *TypeDescriptor) Offsets() []int {
	offs := make([]int, t.noffs)
	copy(offs, t.cells[:t.noffs])
	return offs
}

// HasPointers reports whether objects of this type contain managed pointers.
func (t *TypeDescriptor) HasPointers() bool {
	return t.noffs > 0
}

// Destroy invokes the registered destructor on the given payload, if any.
func (t *TypeDescriptor) Destroy(obj unsafe.Pointer) {
	if t.destroy != nil {
		t.destroy(obj)
	}
}

// base is the descriptor's own address, the value recovered from the
// sentinel.
func (t *TypeDescriptor) base() uintptr {
	return uintptr(unsafe.Pointer(t))
}

// begin is the address of the first offset cell, the initial cursor value
// stamped into a block header when marking first reaches the block.
func (t *TypeDescriptor) begin() uintptr {
	return uintptr(unsafe.Pointer(&t.cells[0]))
}

// end is the address of the sentinel cell, one past the last offset.
func (t *TypeDescriptor) end() uintptr {
	return uintptr(unsafe.Pointer(&t.cells[t.noffs]))
}

// cellAt reads the offset cell at the given cursor address.
func cellAt(cursor uintptr) int {
	return *(*int)(unsafe.Pointer(cursor))
}
