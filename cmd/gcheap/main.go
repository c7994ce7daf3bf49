// Command gcheap demonstrates the managed heap: it builds a small object
// graph, lets parts of it die, runs the collector and dumps the heap after
// every step. With -shell it drops into an interactive shell afterwards for
// poking at the collector by hand.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"

	"github.com/gcheap-org/gcheap/heapconfig"
)

const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorCyan  = "\x1b[36m"
)

var (
	flagConfig = flag.String("config", "", "heap profile YAML file")
	flagShell  = flag.Bool("shell", false, "start an interactive shell after the demo")
	flagNoDemo = flag.Bool("no-demo", false, "skip the scripted demo")
)

func main() {
	flag.Parse()

	profile := &heapconfig.DefaultProfile
	if *flagConfig != "" {
		p, err := heapconfig.LoadFile(*flagConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcheap:", err)
			os.Exit(1)
		}
		profile = p
	}

	heap, err := profile.NewHeap()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gcheap:", err)
		os.Exit(1)
	}

	out := colorable.NewColorableStdout()
	demoOut = out
	if !*flagNoDemo {
		runDemo(heap, out)
	}
	if *flagShell {
		if err := runShell(heap, out, os.Stdin); err != nil {
			fmt.Fprintln(os.Stderr, "gcheap:", err)
			os.Exit(1)
		}
	}
}

func section(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s%s%s\n", colorCyan, msg, colorReset)
}
