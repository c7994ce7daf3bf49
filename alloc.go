package gcheap

import "unsafe"

// tryAllocate finds a free block for t using first-fit, splits it when the
// residue can hold a block of its own, unlinks it from the free list and
// stamps it with the type. Returns the zeroed payload, or nil when no block
// fits.
func (h *Heap) tryAllocate(t *TypeDescriptor) unsafe.Pointer {
	var prev *blockHeader
	cur := h.freeList
	for cur != nil && cur.size < t.size {
		prev, cur = cur, cur.next()
	}
	if cur == nil {
		return nil
	}

	cur.split(t.size, h.align)
	if prev != nil {
		prev.setNext(cur.next())
	} else {
		h.freeList = cur.next()
	}
	cur.setType(t)

	data := cur.data(h.align)
	memzero(data, cur.size)
	return unsafe.Pointer(data)
}

// mergeBlocks walks the arena once, replaces every run of adjacent free
// blocks by a single free block and rebuilds the free list. The rebuilt list
// is ordered by descending address, same as after a sweep. Used blocks are
// untouched; no destructors run here.
func (h *Heap) mergeBlocks() {
	var freeList *blockHeader

	for addr := h.start; addr < h.end; {
		blk := headerAt(addr)
		if blk.used() {
			addr = blk.following(h.align)
			continue
		}

		run := blk.following(h.align)
		for run < h.end && headerAt(run).free() {
			run = headerAt(run).following(h.align)
		}
		blk.makeFree(freeList, run-addr-h.align)
		freeList = blk
		addr = run
	}

	h.freeList = freeList
	if heapDebug {
		println("gcheap: merged free blocks, new head:", h.freeList)
	}
}
