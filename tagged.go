package gcheap

import "github.com/gcheap-org/gcheap/internal/hdr"

// taggedPtr is a pointer-sized word with the mark and free bits packed into
// the two lowest bits. See internal/hdr for the bit layout. A taggedPtr is
// stored directly in arena memory as part of each block header.
type taggedPtr uintptr

// ptr returns the pointer portion with the tags stripped.
func (t taggedPtr) ptr() uintptr {
	return uintptr(t) &^ hdr.TagMask
}

// set replaces the pointer portion and preserves the tag bits. The incoming
// address must be tag-free, that is, aligned to at least 4 bytes.
func (t *taggedPtr) set(addr uintptr) {
	if heapAsserts && addr&hdr.TagMask != 0 {
		heapPanic("unaligned pointer stored in tagged word")
	}
	*t = taggedPtr(addr | uintptr(*t)&hdr.TagMask)
}

func (t taggedPtr) mark() bool {
	return uintptr(t)&hdr.MarkBit != 0
}

func (t *taggedPtr) setMark(mark bool) {
	if mark {
		*t |= hdr.MarkBit
	} else {
		*t &^= hdr.MarkBit
	}
}

func (t taggedPtr) free() bool {
	return uintptr(t)&hdr.FreeBit != 0
}

func (t taggedPtr) used() bool {
	return !t.free()
}

func (t *taggedPtr) setFree(free bool) {
	if free {
		*t |= hdr.FreeBit
	} else {
		*t &^= hdr.FreeBit
	}
}

// isNil reports whether the pointer portion is null, ignoring the tags.
func (t taggedPtr) isNil() bool {
	return t.ptr() == 0
}

// swap exchanges the whole words, tags included.
func (t *taggedPtr) swap(other *taggedPtr) {
	*t, *other = *other, *t
}
