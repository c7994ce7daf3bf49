package hdr

import "unsafe"

// Bit layout of the block header word.
//
// The word is a pointer with the two lowest bits borrowed as tags. Everything
// a header can point to (block headers, type descriptors, offset cells) is at
// least word-aligned, so the borrowed bits are always vacant in the pointer
// itself. The same word serves three roles, disambiguated by the tags:
//
//	free=1         next free block in the free list
//	free=0 mark=0  the object's type descriptor
//	free=0 mark=1  cursor into the descriptor's offset list while the block
//	               is being scanned; the type descriptor again once its scan
//	               is done, until the mark is cleared
const (
	MarkBit = 1 << 0
	FreeBit = 1 << 1
	TagMask = MarkBit | FreeBit
)

// WordSize is the size of a header word and of one offset cell.
const WordSize = unsafe.Sizeof(uintptr(0))
