package gcheap

import (
	"time"
	"unsafe"
)

// GC performs a full collection cycle: mark everything reachable from the
// registered roots, then sweep the arena, destroying unreachable objects and
// rebuilding the free list. The cycle runs to completion on the calling
// goroutine; the single mutator is stopped by construction.
func (h *Heap) GC() {
	start := time.Now()
	if heapDebug {
		println("gcheap: running collection cycle...")
	}

	h.markRoots()
	h.sweep()

	pause := time.Since(start)
	h.numGC++
	h.lastGC = time.Now()
	h.pauseTotal += pause
	h.recordPause(pause)
}

// sweep walks the arena once. Marked blocks survive and get their mark
// cleared. Every maximal run of unmarked blocks is collapsed into a single
// free block, invoking the destructor of each dead object in arena order,
// and prepended to the new free list. On return the free list is ordered by
// descending address and no free block is adjacent to another.
func (h *Heap) sweep() {
	var freeList *blockHeader

	for addr := h.start; addr < h.end; {
		blk := headerAt(addr)
		if blk.marked() {
			blk.word.setMark(false)
			addr = blk.following(h.align)
			continue
		}

		// Extend the free block over the whole unmarked run, destroying
		// dead objects as they are passed.
		run := addr
		for {
			dead := headerAt(run)
			if dead.used() {
				dead.typ().Destroy(unsafe.Pointer(dead.data(h.align)))
			}
			run = dead.following(h.align)
			if run >= h.end || headerAt(run).marked() {
				break
			}
		}

		blk.makeFree(freeList, run-addr-h.align)
		freeList = blk
		addr = run
	}

	h.freeList = freeList
}
