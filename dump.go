package gcheap

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/inhies/go-bytesize"
	"github.com/sigurn/crc16"
)

// dumpDataBytes is how many leading payload bytes the dump shows per object.
const dumpDataBytes = 4

// crcTable is used for the arena checksum in the dump footer. Two dumps of
// an untouched heap carry the same checksum.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Dump writes a human-readable description of the heap to w: overall
// statistics, the free block table and the list of live objects with their
// outgoing pointers. Safe to call at any time outside a collection cycle.
func (h *Heap) Dump(w io.Writer) {
	stats := h.CollectStats(true)

	fmt.Fprintf(w, "==== Statistics for heap at %#x ====\n", h.start)
	fmt.Fprintf(w, "Heap size:  %d bytes (%s)\n", stats.HeapSize, bytesize.New(float64(stats.HeapSize)))
	fmt.Fprintf(w, "Used space: %d bytes (%s)\n", stats.UsedSize, bytesize.New(float64(stats.UsedSize)))
	fmt.Fprintf(w, "Free space: %d bytes (%s)\n", stats.FreeSize, bytesize.New(float64(stats.FreeSize)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Object count:    %d (%d live)\n", stats.NumObjects, stats.NumLiveObjects)
	fmt.Fprintf(w, "Object size:     %d bytes (%d in live objects)\n", stats.ObjectSize, stats.LiveObjectSize)
	fmt.Fprintf(w, "Available space: %d bytes in %d blocks\n", stats.FreeBlockSize, stats.NumFreeBlocks)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "= Free Blocks =\nAddress            Size(net)\n")
	for blk := h.freeList; blk != nil; blk = blk.next() {
		fmt.Fprintf(w, "%#016x %d\n", blk.addr(), blk.size)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "= Live Objects =\n")
	h.dumpLiveObjects(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Arena checksum: %#04x\n", h.checksum())
}

// dumpLiveObjects marks the heap from the roots and prints every live
// object while clearing the marks again.
func (h *Heap) dumpLiveObjects(w io.Writer) {
	h.markRoots()

	for addr := h.start; addr < h.end; {
		blk := headerAt(addr)
		addr = blk.following(h.align)
		if !blk.marked() {
			continue
		}
		blk.word.setMark(false)

		t := blk.typ()
		data := blk.data(h.align)
		fmt.Fprintf(w, "%#x %s\n", data, t.Name())

		n := min(t.Size(), dumpDataBytes)
		fmt.Fprintf(w, "  Data: % x", unsafe.Slice((*byte)(unsafe.Pointer(data)), n))
		if t.Size() > dumpDataBytes {
			fmt.Fprint(w, " ...")
		}
		fmt.Fprintln(w)

		if !t.HasPointers() {
			fmt.Fprint(w, "  Pointers: none\n")
			continue
		}
		fmt.Fprint(w, "  Pointers:\n")
		for _, off := range t.Offsets() {
			field := *(*uintptr)(unsafe.Pointer(data + uintptr(off)))
			fmt.Fprintf(w, "    +%-3d %#x\n", off, field)
		}
	}
}

// checksum computes a CRC-16 over the whole arena, headers included.
func (h *Heap) checksum() uint16 {
	arena := unsafe.Slice((*byte)(unsafe.Pointer(h.start)), h.Size())
	return crc16.Checksum(arena, crcTable)
}
