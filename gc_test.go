package gcheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// Scenario A: fill-and-collect. A root holding a 4-node linked list drops
// all but the head; collection reclaims the three tail nodes.
func TestCollectLinkedListTail(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	nodes := make([]*listNode, 4)
	for i := range nodes {
		nodes[i] = allocNode(t, h)
	}
	for i := 0; i < 3; i++ {
		nodes[i].next = nodes[i+1]
	}
	h.RegisterRoot(unsafe.Pointer(nodes[0]))

	nodes[0].next = nil
	h.GC()

	stats := h.CollectStats(true)
	require.Equal(t, 1, stats.NumObjects)
	require.Equal(t, 1, stats.NumLiveObjects)
	require.Equal(t, h.Size()-(16+32), stats.FreeSize)
	require.Len(t, destroyed, 3)
	require.True(t, h.PayloadLive(unsafe.Pointer(nodes[0])))
	requireConsistent(t, h)
}

// Scenario B: a two-node cycle terminates and survives with both pointers
// intact.
func TestCollectCycle(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	a := allocPair(t, h)
	b := allocPair(t, h)
	a.left = b
	b.left = a
	h.RegisterRoot(unsafe.Pointer(a))

	h.GC()

	require.Empty(t, destroyed)
	require.Equal(t, b, a.left)
	require.Equal(t, a, b.left)
	require.Nil(t, a.right)
	require.Nil(t, b.right)
	requireConsistent(t, h)
}

// Scenario C: a diamond. Both paths reach X; X survives exactly once and
// both incoming pointers are restored.
func TestCollectDiamond(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	r := allocPair(t, h)
	l := allocPair(t, h)
	m := allocPair(t, h)
	x := allocPair(t, h)
	r.left = l
	r.right = m
	l.left = x
	m.left = x
	h.RegisterRoot(unsafe.Pointer(r))

	h.GC()

	require.Empty(t, destroyed)
	require.Equal(t, l, r.left)
	require.Equal(t, m, r.right)
	require.Equal(t, x, l.left)
	require.Equal(t, x, m.left)
	require.True(t, h.PayloadLive(unsafe.Pointer(x)))
	requireConsistent(t, h)
}

// Scenario F: removing the only root reclaims everything; the arena
// collapses back to a single free block spanning all but one header.
func TestCollectAfterRootRemoval(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	r := allocPair(t, h)
	l := allocPair(t, h)
	x := allocPair(t, h)
	r.left = l
	l.left = x
	h.RegisterRoot(unsafe.Pointer(r))

	h.GC()
	require.Empty(t, destroyed)

	require.True(t, h.RemoveRoot(unsafe.Pointer(r)))
	h.GC()

	require.Len(t, destroyed, 3)
	blocks := walkBlocks(h)
	require.Len(t, blocks, 1)
	require.True(t, blocks[0].free())
	require.Equal(t, h.Size()-h.align, blocks[0].size)
	requireConsistent(t, h)
}

// DSW restoration: every pointer field in a reachable graph holds the same
// value after collection, including self references and shared diamonds.
func TestMarkRestoresAllPointers(t *testing.T) {
	h := newTestHeap(t, 1024, 16)

	pairs := make([]*pairNode, 8)
	for i := range pairs {
		pairs[i] = allocPair(t, h)
	}
	// A dense tangle: chain on left, random-ish cross links on right, one
	// self reference and a back edge to the head.
	for i := 0; i < 7; i++ {
		pairs[i].left = pairs[i+1]
	}
	pairs[0].right = pairs[5]
	pairs[2].right = pairs[2] // self reference
	pairs[4].right = pairs[1]
	pairs[7].right = pairs[0] // cycle back to the root
	h.RegisterRoot(unsafe.Pointer(pairs[0]))

	type snapshot struct{ left, right *pairNode }
	before := make([]snapshot, len(pairs))
	for i, p := range pairs {
		before[i] = snapshot{p.left, p.right}
	}

	h.GC()

	for i, p := range pairs {
		require.Equal(t, before[i].left, p.left, "pairs[%d].left", i)
		require.Equal(t, before[i].right, p.right, "pairs[%d].right", i)
	}
	require.Empty(t, destroyed)
	requireConsistent(t, h)
}

// DSW coverage: a block survives iff it is reachable from a registered root
// through the declared pointer fields.
func TestMarkCoverage(t *testing.T) {
	h := newTestHeap(t, 1024, 16)

	reachable := make([]*pairNode, 4)
	for i := range reachable {
		reachable[i] = allocPair(t, h)
	}
	garbage := make([]*pairNode, 4)
	for i := range garbage {
		garbage[i] = allocPair(t, h)
	}
	reachable[0].left = reachable[1]
	reachable[1].left = reachable[2]
	reachable[1].right = reachable[3]
	// The garbage nodes reference each other and even a reachable node;
	// incoming references from garbage must not keep them alive.
	garbage[0].left = garbage[1]
	garbage[1].left = reachable[0]
	garbage[2].left = garbage[3]
	h.RegisterRoot(unsafe.Pointer(reachable[0]))

	h.GC()

	for i, p := range reachable {
		require.True(t, h.PayloadLive(unsafe.Pointer(p)), "reachable[%d]", i)
	}
	require.Len(t, destroyed, len(garbage))
	for i, p := range garbage {
		require.Contains(t, destroyed, uintptr(unsafe.Pointer(p)), "garbage[%d]", i)
	}
	requireConsistent(t, h)
}

// Destructors run exactly once per dead object, in arena order, and never
// for survivors.
func TestDestructorsRunOncePerDeadObject(t *testing.T) {
	h := newTestHeap(t, 1024, 16)

	var all []*pairNode
	for i := 0; i < 6; i++ {
		all = append(all, allocPair(t, h))
	}
	// Keep blocks 1 and 4 alive, in two separate runs of garbage.
	h.RegisterRoot(unsafe.Pointer(all[1]))
	h.RegisterRoot(unsafe.Pointer(all[4]))

	h.GC()

	want := []uintptr{
		uintptr(unsafe.Pointer(all[0])),
		uintptr(unsafe.Pointer(all[2])),
		uintptr(unsafe.Pointer(all[3])),
		uintptr(unsafe.Pointer(all[5])),
	}
	require.Equal(t, want, destroyed, "dead objects destroyed in arena order")
	requireConsistent(t, h)
}

// Free-list soundness after sweep: the free list enumerates exactly the
// unmarked spans, in descending address order, with no two adjacent free
// blocks.
func TestSweepRebuildsFreeList(t *testing.T) {
	h := newTestHeap(t, 1024, 16)

	var all []*pairNode
	for i := 0; i < 8; i++ {
		all = append(all, allocPair(t, h))
	}
	h.RegisterRoot(unsafe.Pointer(all[2]))
	h.RegisterRoot(unsafe.Pointer(all[5]))

	h.GC()

	addrs := freeListAddrs(h)
	for i := 1; i < len(addrs); i++ {
		require.Greater(t, uint64(addrs[i-1]), uint64(addrs[i]), "free list ordered by descending address")
	}

	blocks := walkBlocks(h)
	for i, blk := range blocks {
		if i > 0 {
			require.False(t, blocks[i-1].free() && blk.free(),
				"adjacent free blocks after sweep")
		}
		require.False(t, blk.marked(), "marks must be clear after sweep")
	}
	requireConsistent(t, h)
}

// Shared roots: a root reachable from another root must be skipped by the
// driver, not marked twice.
func TestSharedRoots(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	a := allocPair(t, h)
	b := allocPair(t, h)
	a.left = b
	h.RegisterRoot(unsafe.Pointer(a))
	h.RegisterRoot(unsafe.Pointer(b))

	h.GC()
	require.Empty(t, destroyed)
	require.Equal(t, b, a.left)

	// Dropping the first root must keep b alive through its own
	// registration.
	require.True(t, h.RemoveRoot(unsafe.Pointer(a)))
	h.GC()
	require.Len(t, destroyed, 1)
	require.True(t, h.PayloadLive(unsafe.Pointer(b)))
	requireConsistent(t, h)
}

// A root of a pointer-free type marks only itself.
func TestMarkPointerFreeRoot(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	p := h.Allocate(blob16Type, false)
	require.NotNil(t, p)
	q := h.Allocate(blob16Type, false)
	require.NotNil(t, q)
	h.RegisterRoot(p)

	h.GC()
	require.Equal(t, []uintptr{uintptr(q)}, destroyed)
	requireConsistent(t, h)
}

// Duplicate roots are permitted; removal removes only the first match.
func TestDuplicateRoots(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	p := h.Allocate(blob16Type, false)
	require.NotNil(t, p)
	h.RegisterRoot(p)
	h.RegisterRoot(p)
	require.Equal(t, 2, h.NumRoots())

	h.GC()
	require.Empty(t, destroyed)

	require.True(t, h.RemoveRoot(p))
	require.Equal(t, 1, h.NumRoots())
	h.GC()
	require.Empty(t, destroyed, "second registration still holds the object")

	require.True(t, h.RemoveRoot(p))
	require.False(t, h.RemoveRoot(p))
	h.GC()
	require.Len(t, destroyed, 1)
	requireConsistent(t, h)
}

// Mark cleanliness outside a cycle, and GC statistics bookkeeping.
func TestGCStats(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	var stats GCStats
	h.ReadGCStats(&stats)
	require.Zero(t, stats.NumGC)
	require.True(t, stats.LastGC.IsZero())

	p := h.Allocate(blob16Type, false)
	require.NotNil(t, p)
	h.GC()
	h.GC()

	h.ReadGCStats(&stats)
	require.Equal(t, int64(2), stats.NumGC)
	require.False(t, stats.LastGC.IsZero())
	require.Len(t, stats.Pause, 2)
	require.GreaterOrEqual(t, stats.PauseTotal, stats.Pause[0])
	requireConsistent(t, h)
}

// The allocator integrates with collection: allocate, collect, reuse.
func TestAllocateAfterCollect(t *testing.T) {
	h := newTestHeap(t, 256, 16)

	for i := 0; i < 4; i++ {
		require.NotNil(t, h.Allocate(listNodeType, false))
	}
	require.Nil(t, h.Allocate(blob128Type, false), "heap nearly full")

	h.GC() // no roots: everything dies

	require.Len(t, destroyed, 4)
	p := h.Allocate(blob128Type, false)
	require.NotNil(t, p, "collection must make the space reusable")
	requireConsistent(t, h)
}
