package ptrutil

import "unsafe"

// NoEscape hides a pointer from escape analysis. Used for payload pointers
// that are only converted to an address for arithmetic and never retained by
// the callee.
//
//go:nosplit
func NoEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0) //nolint:staticcheck
}
