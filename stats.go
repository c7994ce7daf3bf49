package gcheap

// HeapStats is a snapshot of the heap's block population.
type HeapStats struct {
	HeapSize uintptr // arena size, headers included
	UsedSize uintptr // bytes in used blocks, headers included
	FreeSize uintptr // bytes in free blocks, headers included

	NumObjects     int     // used blocks
	NumLiveObjects int     // used blocks reachable from the roots
	ObjectSize     uintptr // sum of object payload sizes (descriptor sizes)
	LiveObjectSize uintptr // same, live objects only

	NumFreeBlocks int     // free blocks
	FreeBlockSize uintptr // sum of free block payload sizes
}

// CollectStats walks the arena and gathers block statistics. When countLive
// is set the roots are marked first so the live counters are filled in; the
// marks are cleared again during the walk. Must not be called during a
// collection cycle.
func (h *Heap) CollectStats(countLive bool) HeapStats {
	var stats HeapStats
	stats.HeapSize = h.Size()

	if countLive {
		h.markRoots()
	}
	for addr := h.start; addr < h.end; {
		blk := headerAt(addr)
		if blk.free() {
			stats.NumFreeBlocks++
			stats.FreeBlockSize += blk.size
			stats.FreeSize += h.align + alignUp(blk.size, h.align)
		} else {
			if blk.marked() {
				blk.word.setMark(false)
				stats.NumLiveObjects++
				stats.LiveObjectSize += blk.typ().Size()
			}
			stats.NumObjects++
			stats.ObjectSize += blk.typ().Size()
			stats.UsedSize += h.align + alignUp(blk.size, h.align)
		}
		addr = blk.following(h.align)
	}
	if heapAsserts && stats.FreeSize+stats.UsedSize != stats.HeapSize {
		heapPanic("heap statistics do not add up")
	}

	return stats
}
