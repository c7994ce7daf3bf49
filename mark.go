package gcheap

import (
	"unsafe"

	"github.com/gcheap-org/gcheap/internal/hdr"
)

// Deutsch-Schorr-Waite pointer-reversal marking.
//
// The marker needs no stack or queue: while descending into a pointer field
// the field itself is overwritten with the address of the predecessor, and
// the block header word is repurposed as a cursor into the type's offset
// list. On the way back every reversed field is restored, and the header
// word is restored to the type descriptor by way of the sentinel cell at the
// end of the offset list. Auxiliary space is O(1) regardless of the shape of
// the object graph; each edge is traversed at most twice.

// markRoots marks everything reachable from the registered roots. Roots
// already marked through an earlier root are skipped.
func (h *Heap) markRoots() {
	for _, root := range h.roots {
		if !h.blockFromPayload(root).marked() {
			h.markFrom(root)
		}
	}
}

// markFrom marks the object graph reachable from one root payload.
func (h *Heap) markFrom(root uintptr) {
	if heapAsserts {
		if root == 0 {
			heapPanic("mark of a null root")
		}
		if h.blockFromPayload(root).marked() {
			heapPanic("mark of an already marked root")
		}
	}

	cur := root
	var prev uintptr
	for {
		blk := h.blockFromPayload(cur)
		if !blk.marked() {
			// First visit: replace the descriptor pointer with a cursor to
			// the first offset cell and set the mark. The descriptor is
			// recovered from the sentinel when this block is fully scanned.
			blk.word.set(blk.typ().begin())
			blk.word.setMark(true)
		} else {
			// Returning to a block mid-scan: advance to the next cell.
			blk.word.set(blk.word.ptr() + hdr.WordSize)
		}

		offset := cellAt(blk.word.ptr())
		if offset >= 0 {
			// Advance. Reverse the pointer field at this offset so it
			// records the way back, then descend into it.
			fieldAddr := cur + uintptr(offset)
			field := *(*uintptr)(unsafe.Pointer(fieldAddr))
			if field != 0 && !h.blockFromPayload(field).marked() {
				*(*uintptr)(unsafe.Pointer(fieldAddr)) = prev
				prev, cur = cur, field
			}
		} else {
			// Retreat. The cursor sits on the sentinel; adding the sentinel
			// value to the cursor address yields the descriptor, which goes
			// back into the header with the mark kept set.
			blk.word.set(blk.word.ptr() + uintptr(offset))
			if prev == 0 {
				return
			}
			// Un-reverse the field currently being scanned at the
			// predecessor: it holds the predecessor's own way back, which
			// becomes prev again, and the finished block goes back into the
			// field.
			finished := cur
			cur = prev
			parent := h.blockFromPayload(cur)
			fieldAddr := cur + uintptr(cellAt(parent.word.ptr()))
			prev = *(*uintptr)(unsafe.Pointer(fieldAddr))
			*(*uintptr)(unsafe.Pointer(fieldAddr)) = finished
		}
	}
}
