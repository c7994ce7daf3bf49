package gcheap

import "unsafe"

// blockHeader is the fixed-size prefix of every block in the arena. The
// header occupies exactly one alignment unit; the payload starts directly
// after it. size is the usable payload size in bytes, always a multiple of
// the heap alignment. word is the tagged pointer described in internal/hdr.
type blockHeader struct {
	size uintptr
	word taggedPtr
}

// blockHeaderSize is the in-memory size of the header struct. The heap
// alignment must be at least this large; the header still occupies a full
// alignment unit in the arena.
const blockHeaderSize = unsafe.Sizeof(blockHeader{})

func headerAt(addr uintptr) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(addr))
}

func (b *blockHeader) addr() uintptr {
	return uintptr(unsafe.Pointer(b))
}

// data returns the payload address for the given heap alignment.
func (b *blockHeader) data(align uintptr) uintptr {
	return b.addr() + align
}

// following returns the address of the physically next block in the arena.
func (b *blockHeader) following(align uintptr) uintptr {
	return b.data(align) + alignUp(b.size, align)
}

func (b *blockHeader) free() bool {
	return b.word.free()
}

func (b *blockHeader) used() bool {
	return b.word.used()
}

func (b *blockHeader) marked() bool {
	return b.word.mark()
}

// next returns the next block in the free list. The block must be free.
func (b *blockHeader) next() *blockHeader {
	if heapAsserts && (!b.free() || b.marked()) {
		heapPanic("free-list walk through a used or marked block")
	}
	p := b.word.ptr()
	if p == 0 {
		return nil
	}
	return headerAt(p)
}

// setNext links this block into the free list ahead of next and tags it
// free. The payload size is left untouched.
func (b *blockHeader) setNext(next *blockHeader) {
	if heapAsserts && next == b {
		heapPanic("free block linked to itself")
	}
	var addr uintptr
	if next != nil {
		addr = next.addr()
	}
	b.word.set(addr)
	b.word.setFree(true)
}

// makeFree turns this block into a free block of the given usable size,
// linked ahead of next.
func (b *blockHeader) makeFree(next *blockHeader, size uintptr) {
	b.setNext(next)
	b.size = size
}

// typ returns the type descriptor of a used block.
func (b *blockHeader) typ() *TypeDescriptor {
	if heapAsserts && (b.free() || b.marked()) {
		heapPanic("type descriptor requested from a free or marked block")
	}
	return (*TypeDescriptor)(unsafe.Pointer(b.word.ptr()))
}

// setType stamps the block as used and holding an object of type t.
func (b *blockHeader) setType(t *TypeDescriptor) {
	b.word.set(t.base())
	b.word.setFree(false)
}

// split carves a new free block off the tail of this free block if the
// residue after an allocation of newSize would still hold a block of its
// own. On a split, this block is resized to the aligned request and the
// residue block takes its place in the free list. Otherwise nothing changes
// and the whole block is handed out, absorbing the internal fragmentation.
func (b *blockHeader) split(newSize, align uintptr) {
	if heapAsserts && !b.free() {
		heapPanic("split of a used block")
	}
	rest := int(alignUp(b.size, align)) - int(alignUp(newSize, align)) - int(align)
	if rest < int(align) {
		return
	}
	restBlock := headerAt(b.addr() + align + alignUp(newSize, align))
	restBlock.makeFree(b.next(), uintptr(rest))
	b.word.set(restBlock.addr())
	b.size = alignUp(newSize, align)
}

// alignUp rounds n up to the next multiple of align, which must be a power
// of two.
func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// memzero clears n bytes starting at addr.
func memzero(addr, n uintptr) {
	clear(unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
}
