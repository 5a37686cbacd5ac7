// Command irtsdemo stands up a context, spawns a child context that
// echoes a message back to it, and prints the parent's final stats — a driver-side
// smoke test for the runtime package, playing the role init_vm's
// caller (idris_rts.c:73) plays for the original C runtime.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	irts "github.com/idris-lang/irts-go/runtime"
)

var (
	stackSize int
	heapSize  int
	traceGC   bool
	dumpStack bool
)

func main() {
	root := &cobra.Command{
		Use:   "irtsdemo",
		Short: "Exercise the irts-go runtime: allocate, spawn, message, collect.",
		RunE:  run,
	}
	root.Flags().IntVar(&stackSize, "stack-size", 4096, "value stack capacity, in slots")
	root.Flags().IntVar(&heapSize, "heap-size", 1<<20, "per-context moving heap size, in bytes")
	root.Flags().BoolVar(&traceGC, "trace-gc", false, "log each collection at debug level")
	root.Flags().BoolVar(&dumpStack, "dump-stack", false, "dump the value stack before exit")

	irts.CaptureArgs(os.Args)
	irts.IgnoreSIGPIPE()

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := irts.NewLogger(traceGC)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	parent := irts.Init(stackSize, heapSize, log)
	irts.Bind(parent)
	defer irts.Unbind()

	greeting := irts.MkString(parent, strPtr("hello from irtsdemo"))
	parent.Push(greeting)

	child := irts.Spawn(parent, func(c *irts.Context) {
		msg, sender := irts.Recv(c, nil)
		echoed := irts.Concat(c, msg, irts.MkString(c, strPtr(" (echoed)")))
		irts.Send(c, sender, echoed)
	}, greeting)

	irts.Send(parent, child, greeting)
	answer, _ := irts.Recv(parent, child)

	if dumpStack {
		parent.DumpStack(os.Stdout)
	}

	stats := parent.StatsSnapshot()
	fmt.Printf("allocations=%d bytesAllocated=%d collections=%d\n",
		stats.Allocations(), stats.BytesAllocated(), stats.Collections())
	fmt.Printf("echoed: %s\n", answer.GetStr())

	if _, err := irts.Terminate(parent); err != nil {
		log.Warn("terminate", zap.Error(err))
	}
	return nil
}

func strPtr(s string) *string { return &s }
