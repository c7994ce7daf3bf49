package gcheap

// heapAsserts enables cheap consistency checks on the hot paths. Contract
// violations (deallocating a free block, payload pointers outside the arena, ...)
// panic when this is set and are undefined behavior otherwise.
const heapAsserts = true

// heapDebug prints tracing output during collection cycles.
const heapDebug = false

func heapPanic(msg string) {
	panic("gcheap: " + msg)
}
