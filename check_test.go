package gcheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckConsistencyCleanHeap(t *testing.T) {
	h := newTestHeap(t, 512, 16)
	require.NoError(t, h.CheckConsistency())

	p := h.Allocate(listNodeType, false)
	require.NotNil(t, p)
	q := h.Allocate(pairNodeType, false)
	require.NotNil(t, q)
	h.Deallocate(p)
	require.NoError(t, h.CheckConsistency())

	h.GC()
	require.NoError(t, h.CheckConsistency())
}

func TestCheckConsistencyDetectsStrayMark(t *testing.T) {
	h := newTestHeap(t, 256, 16)
	p := h.Allocate(blob16Type, false)
	require.NotNil(t, p)

	blk := h.blockFromPayload(uintptr(p))
	blk.word.setMark(true)
	err := h.CheckConsistency()
	require.Error(t, err)
	require.Contains(t, err.Error(), "mark bit set outside a collection cycle")
	blk.word.setMark(false)
	require.NoError(t, h.CheckConsistency())
}

func TestCheckConsistencyDetectsBrokenWalk(t *testing.T) {
	h := newTestHeap(t, 256, 16)
	p := h.Allocate(blob16Type, false)
	require.NotNil(t, p)

	blk := h.blockFromPayload(uintptr(p))
	saved := blk.size
	blk.size = h.Size() // walk would overshoot the arena end
	err := h.CheckConsistency()
	require.Error(t, err)
	blk.size = saved
	require.NoError(t, h.CheckConsistency())
}

func TestCheckConsistencyDetectsUnknownDescriptor(t *testing.T) {
	h := newTestHeap(t, 256, 16)
	p := h.Allocate(blob16Type, false)
	require.NotNil(t, p)

	blk := h.blockFromPayload(uintptr(p))
	saved := blk.word
	var fake [4]uintptr // aligned, but no descriptor lives here
	blk.word.set(uintptr(unsafe.Pointer(&fake)))
	err := h.CheckConsistency()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unregistered type descriptor")
	blk.word = saved
	require.NoError(t, h.CheckConsistency())
}

func TestCheckConsistencyDetectsFreeListCorruption(t *testing.T) {
	h := newTestHeap(t, 512, 16)
	a := h.Allocate(blob48Type, false)
	require.NotNil(t, a)
	b := h.Allocate(blob48Type, false)
	require.NotNil(t, b)
	h.Deallocate(a)
	h.Deallocate(b)

	// Point the second list entry back at the first: a cycle.
	first := h.freeList
	second := first.next()
	require.NotNil(t, second)
	saved := second.word
	second.setNext(first)
	err := h.CheckConsistency()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle in the free list")
	second.word = saved
	require.NoError(t, h.CheckConsistency())
}
