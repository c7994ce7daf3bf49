package gcheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// Managed types shared by the tests.
//
// listNode is a 32-byte payload with a single pointer at offset 0, the shape
// used by the linked-list scenarios. pairNode has two pointer fields for
// cycles and diamonds. The blob types carry no pointers and exist to shape
// the free list.

type listNode struct {
	next *listNode
	_    [24]byte
}

type pairNode struct {
	left  *pairNode
	right *pairNode
	val   uint64
}

var (
	listNodeType = MustNewType("listNode", unsafe.Sizeof(listNode{}), recordDestroy,
		int(unsafe.Offsetof(listNode{}.next)))

	pairNodeType = MustNewType("pairNode", unsafe.Sizeof(pairNode{}), recordDestroy,
		int(unsafe.Offsetof(pairNode{}.left)),
		int(unsafe.Offsetof(pairNode{}.right)))

	blob16Type  = MustNewType("blob16", 16, recordDestroy)
	blob48Type  = MustNewType("blob48", 48, recordDestroy)
	blob64Type  = MustNewType("blob64", 64, recordDestroy)
	blob80Type  = MustNewType("blob80", 80, recordDestroy)
	blob96Type  = MustNewType("blob96", 96, recordDestroy)
	blob128Type = MustNewType("blob128", 128, recordDestroy)
)

// destroyed records the payload addresses destroyed during a sweep, in
// destruction order. Tests reset it with resetDestroyed.
var destroyed []uintptr

func recordDestroy(obj unsafe.Pointer) {
	destroyed = append(destroyed, uintptr(obj))
}

func resetDestroyed() {
	destroyed = nil
}

func newTestHeap(t *testing.T, capacity, align uintptr) *Heap {
	t.Helper()
	h, err := New(capacity, align)
	require.NoError(t, err)
	resetDestroyed()
	return h
}

// allocNode allocates a listNode and fails the test on OOM.
func allocNode(t *testing.T, h *Heap) *listNode {
	t.Helper()
	n, err := AllocateAs[listNode](h, listNodeType, false)
	require.NoError(t, err)
	return n
}

// allocPair allocates a pairNode and fails the test on OOM.
func allocPair(t *testing.T, h *Heap) *pairNode {
	t.Helper()
	p, err := AllocateAs[pairNode](h, pairNodeType, false)
	require.NoError(t, err)
	return p
}

// freeListAddrs enumerates the free list head to tail.
func freeListAddrs(h *Heap) []uintptr {
	var addrs []uintptr
	for blk := h.freeList; blk != nil; blk = blk.next() {
		addrs = append(addrs, blk.addr())
	}
	return addrs
}

// walkBlocks enumerates all block headers by linear arena walk.
func walkBlocks(h *Heap) []*blockHeader {
	var blocks []*blockHeader
	for addr := h.start; addr < h.end; {
		blk := headerAt(addr)
		blocks = append(blocks, blk)
		addr = blk.following(h.align)
	}
	return blocks
}

// requireConsistent asserts the full invariant checker passes.
func requireConsistent(t *testing.T, h *Heap) {
	t.Helper()
	require.NoError(t, h.CheckConsistency())
}
