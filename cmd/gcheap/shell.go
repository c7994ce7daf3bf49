package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/gofrs/flock"
	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"

	"github.com/gcheap-org/gcheap"
	"github.com/gcheap-org/gcheap/diagnostics"
)

// The shell works on cells: managed objects with two pointer fields, enough
// to build lists, trees, diamonds and cycles against the collector.
type cell struct {
	left  *cell
	right *cell
	tag   [8]byte
}

var cellType = gcheap.MustNewType("cell", unsafe.Sizeof(cell{}),
	destroyNamed("cell"),
	int(unsafe.Offsetof(cell{}.left)),
	int(unsafe.Offsetof(cell{}.right)))

type shell struct {
	heap  *gcheap.Heap
	out   io.Writer
	cells map[string]*cell
}

func runShell(h *gcheap.Heap, out io.Writer, in io.Reader) error {
	sh := &shell{heap: h, out: out, cells: make(map[string]*cell)}
	fmt.Fprintf(out, "gcheap shell, 'help' lists commands\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			sh.errorf("%v", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		sh.run(args[0], args[1:])
	}
}

func (sh *shell) run(cmd string, args []string) {
	switch cmd {
	case "help":
		fmt.Fprint(sh.out, `commands:
  new <name> [root]        allocate a cell, optionally as a root
  set <a> left|right <b>   point a field at another cell ('nil' clears)
  root <name>              register a cell as a root
  unroot <name>            remove the first matching root
  gc                       run a collection cycle
  dump [file]              dump the heap (to a locked file if given)
  stats                    print heap and collection statistics
  check                    verify the heap invariants
  quit                     leave the shell
`)
	case "new":
		if len(args) < 1 || len(args) > 2 || (len(args) == 2 && args[1] != "root") {
			sh.errorf("usage: new <name> [root]")
			return
		}
		if _, exists := sh.cells[args[0]]; exists {
			sh.errorf("cell %q already exists", args[0])
			return
		}
		isRoot := len(args) == 2
		c, err := gcheap.AllocateAs[cell](sh.heap, cellType, isRoot)
		if err != nil {
			sh.errorf("%v", err)
			return
		}
		copy(c.tag[:], args[0])
		sh.cells[args[0]] = c
		sh.okf("cell %q at %#x", args[0], uintptr(unsafe.Pointer(c)))
	case "set":
		if len(args) != 3 {
			sh.errorf("usage: set <a> left|right <b>")
			return
		}
		a := sh.lookup(args[0])
		if a == nil {
			return
		}
		var b *cell
		if args[2] != "nil" {
			if b = sh.lookup(args[2]); b == nil {
				return
			}
		}
		switch args[1] {
		case "left":
			a.left = b
		case "right":
			a.right = b
		default:
			sh.errorf("no field %q, want left or right", args[1])
		}
	case "root":
		if len(args) != 1 {
			sh.errorf("usage: root <name>")
			return
		}
		if c := sh.lookup(args[0]); c != nil {
			sh.heap.RegisterRoot(unsafe.Pointer(c))
		}
	case "unroot":
		if len(args) != 1 {
			sh.errorf("usage: unroot <name>")
			return
		}
		if c := sh.lookup(args[0]); c != nil {
			if !sh.heap.RemoveRoot(unsafe.Pointer(c)) {
				sh.errorf("cell %q is not a root", args[0])
			}
		}
	case "gc":
		sh.heap.GC()
		// Cells reclaimed by the collector must not be reachable through
		// the name table anymore.
		for name, c := range sh.cells {
			if !sh.alive(c) {
				delete(sh.cells, name)
			}
		}
		var stats gcheap.GCStats
		sh.heap.ReadGCStats(&stats)
		sh.okf("collection #%d took %v", stats.NumGC, stats.Pause[0])
	case "dump":
		switch len(args) {
		case 0:
			sh.heap.Dump(sh.out)
		case 1:
			if err := sh.dumpToFile(args[0]); err != nil {
				sh.errorf("%v", err)
			} else {
				sh.okf("dump written to %s", args[0])
			}
		default:
			sh.errorf("usage: dump [file]")
		}
	case "stats":
		stats := sh.heap.CollectStats(true)
		fmt.Fprintf(sh.out, "heap %s, used %s, free %s\n",
			bytesize.New(float64(stats.HeapSize)),
			bytesize.New(float64(stats.UsedSize)),
			bytesize.New(float64(stats.FreeSize)))
		fmt.Fprintf(sh.out, "%d objects (%d live), %d free blocks\n",
			stats.NumObjects, stats.NumLiveObjects, stats.NumFreeBlocks)
		var gcStats gcheap.GCStats
		sh.heap.ReadGCStats(&gcStats)
		fmt.Fprintf(sh.out, "%d collections, %v total pause\n", gcStats.NumGC, gcStats.PauseTotal)
	case "check":
		if err := sh.heap.CheckConsistency(); err != nil {
			diagnostics.CreateDiagnostics(err).WriteTo(sh.out)
			return
		}
		sh.okf("heap is consistent")
	default:
		sh.errorf("unknown command %q, try 'help'", cmd)
	}
}

// dumpToFile writes the dump to path under an advisory file lock, so two
// shells dumping to the same file do not interleave.
func (sh *shell) dumpToFile(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sh.heap.Dump(f)
	return nil
}

func (sh *shell) lookup(name string) *cell {
	c := sh.cells[name]
	if c == nil {
		sh.errorf("no cell named %q", name)
	}
	return c
}

// alive reports whether the cell survived the last collection, by checking
// on a linear arena walk that its payload still starts a used block. A
// reclaimed cell's block is free again.
func (sh *shell) alive(c *cell) bool {
	return sh.heap.PayloadLive(unsafe.Pointer(c))
}

func (sh *shell) okf(format string, args ...any) {
	fmt.Fprintf(sh.out, colorGreen+format+colorReset+"\n", args...)
}

func (sh *shell) errorf(format string, args ...any) {
	fmt.Fprintf(sh.out, colorRed+"error: "+format+colorReset+"\n", args...)
}
