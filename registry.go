package gcheap

import "sync"

// The type registry keeps every descriptor alive for as long as the process
// runs. Block headers reference descriptors by raw address, which the Go
// garbage collector cannot see, so an unregistered descriptor could be
// reclaimed under a live heap. The registry also backs descriptor lookup for
// the consistency checker.
var typeRegistry = struct {
	sync.Mutex
	byAddr map[uintptr]*TypeDescriptor
}{
	byAddr: make(map[uintptr]*TypeDescriptor),
}

func registerType(t *TypeDescriptor) {
	typeRegistry.Lock()
	defer typeRegistry.Unlock()
	typeRegistry.byAddr[t.base()] = t
}

// lookupType returns the registered descriptor at the given address, or nil.
func lookupType(addr uintptr) *TypeDescriptor {
	typeRegistry.Lock()
	defer typeRegistry.Unlock()
	return typeRegistry.byAddr[addr]
}

// RegisteredTypes returns all registered descriptors, in no particular order.
func RegisteredTypes() []*TypeDescriptor {
	typeRegistry.Lock()
	defer typeRegistry.Unlock()
	types := make([]*TypeDescriptor, 0, len(typeRegistry.byAddr))
	for _, t := range typeRegistry.byAddr {
		types = append(types, t)
	}
	return types
}
