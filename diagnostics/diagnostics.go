// Package diagnostics formats heap-consistency findings and prints them in a
// consistent way.
package diagnostics

import (
	"fmt"
	"io"
	"sort"

	"github.com/gcheap-org/gcheap"
)

// A single diagnostic.
type Diagnostic struct {
	// Addr is the block address the finding is anchored at, zero when the
	// error carries no address (it is not a gcheap.ConsistencyError).
	Addr uintptr
	Msg  string
}

// Diagnostics of a whole heap check, sorted and ready for printing.
type HeapDiagnostic []Diagnostic

// CreateDiagnostics reads the underlying errors in the error object, as
// returned by Heap.CheckConsistency, and creates a set of diagnostics that
// is sorted by block address and can be readily printed.
func CreateDiagnostics(err error) HeapDiagnostic {
	if err == nil {
		return nil
	}
	diags := createDiagnostics(err)
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Addr < diags[j].Addr
	})
	return diags
}

// Extract diagnostics from the given error and return them as a slice (which
// in many cases will just be a single diagnostic).
func createDiagnostics(err error) []Diagnostic {
	switch err := err.(type) {
	case *gcheap.ConsistencyError:
		return []Diagnostic{
			{
				Addr: err.Addr,
				Msg:  err.Msg,
			},
		}
	case interface{ Unwrap() []error }:
		// errors.Join result.
		var diags []Diagnostic
		for _, err := range err.Unwrap() {
			diags = append(diags, createDiagnostics(err)...)
		}
		return diags
	default:
		return []Diagnostic{
			{Msg: err.Error()},
		}
	}
}

// Write the diagnostics to the given writer, one line each.
func (heapDiag HeapDiagnostic) WriteTo(w io.Writer) {
	for _, diag := range heapDiag {
		diag.WriteTo(w)
	}
}

// Write this diagnostic to the given writer.
func (diag Diagnostic) WriteTo(w io.Writer) {
	if diag.Addr != 0 {
		fmt.Fprintf(w, "%#x: %s\n", diag.Addr, diag.Msg)
	} else {
		fmt.Fprintf(w, "heap: %s\n", diag.Msg)
	}
}
