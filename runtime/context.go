package runtime

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Context is the self-contained execution unit of §3.4: one value
// stack, one moving heap, one foreign heap, a return register, a
// scratch register, and — always, since goroutines make a per-context
// inbox cheap in a way a pthread-per-context model is not — an inbox for
// cross-context messaging (§4.G).
type Context struct {
	mu sync.Mutex

	stack   []Value
	base    int
	top     int
	max     int

	ret  Value
	reg1 Value

	heap    *Heap
	foreign *ForeignHeap
	stats   Stats

	active bool

	// Messaging state; see message.go. processes counts this context's
	// own participation plus any children it spawned and hasn't yet
	// reaped, mirroring idris_rts.c's `vm->processes`.
	inbox      []message
	inboxMu    sync.Mutex
	inboxBlock sync.Mutex
	inboxCond  *sync.Cond
	processes  int32

	log *zap.Logger
}

// defaultInboxCapacity matches idris_rts.c's `malloc(1024*sizeof(VAL))`.
const defaultInboxCapacity = 1024

// registry maps an OS thread id (via unix.Gettid) to the Context bound
// to it, backing Current/Bind/Unbind (§4.D). Go has no public
// goroutine<->OS-thread pinning by default; Bind calls
// runtime.LockOSThread so that the OS thread id stays stable for the
// duration of the binding, the same way idris_rts.c pins a VM to a
// pthread via pthread_setspecific.
var registry sync.Map // int32(tid) -> *Context

// Init creates a new context with the given stack and heap size,
// mirroring `init_vm` (idris_rts.c:20-70).
func Init(stackSize, heapSize int, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	ctx := &Context{
		stack:   make([]Value, stackSize),
		max:     stackSize,
		active:  true,
		foreign: NewForeignHeap(log),
		log:     log,
	}
	ctx.heap = NewHeap(ctx, uintptr(heapSize), log)
	ctx.inboxCond = sync.NewCond(&ctx.inboxBlock)
	initNullaries()
	return ctx
}

// Bind associates ctx with the calling OS thread for the duration of a
// call, locking the goroutine to that thread so the association can't
// be invalidated by the Go scheduler migrating the goroutine mid-call.
// Callers must pair every Bind with Unbind.
func Bind(ctx *Context) {
	runtime.LockOSThread()
	registry.Store(int32(unix.Gettid()), ctx)
}

// Unbind removes the association set up by Bind and releases the OS
// thread pin.
func Unbind() {
	registry.Delete(int32(unix.Gettid()))
	runtime.UnlockOSThread()
}

// Current returns the context bound to the calling OS thread, or nil if
// none is bound.
func Current() *Context {
	v, ok := registry.Load(int32(unix.Gettid()))
	if !ok {
		return nil
	}
	return v.(*Context)
}

// Terminate releases ctx's resources and returns its final stats,
// mirroring `terminate` (idris_rts.c:121-144): the stack is dropped, the
// heap's arena is let go, the foreign heap's remaining finalizers fire,
// and the context is flipped inactive so that a later Send to it fails
// gracefully instead of crashing (§3.4, §7).
func Terminate(ctx *Context) (Stats, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	err := ctx.foreign.Destroy()
	ctx.stack = nil
	ctx.heap = nil
	ctx.inbox = nil
	ctx.active = false

	if err != nil {
		return ctx.stats, errors.Wrap(err, "terminate: foreign heap finalizer")
	}
	return ctx.stats, nil
}

// Active reports whether ctx is still usable; a terminated context may
// still be the target of a Send attempt, which must fail gracefully
// rather than panic (§3.4).
func (ctx *Context) Active() bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.active
}

// Heap returns ctx's moving heap.
func (ctx *Context) Heap() *Heap { return ctx.heap }

// Foreign returns ctx's companion foreign-resource heap.
func (ctx *Context) Foreign() *ForeignHeap { return ctx.foreign }

// StatsSnapshot returns a copy of ctx's statistics record.
func (ctx *Context) StatsSnapshot() Stats { return ctx.stats }

// Push advances top by one slot holding v, raising a fatal stack
// overflow if that would pass max (§4.D, §7).
func (ctx *Context) Push(v Value) {
	if ctx.top >= ctx.max {
		fatal(ctx.log, "stack overflow", zap.Int("max", ctx.max))
	}
	ctx.stack[ctx.top] = v
	ctx.top++
}

// Pop retracts top by one slot and returns the value that was there.
func (ctx *Context) Pop() Value {
	ctx.top--
	return ctx.stack[ctx.top]
}

// Base returns the current call's argument base index.
func (ctx *Context) Base() int { return ctx.base }

// Top returns the current stack-top index.
func (ctx *Context) Top() int { return ctx.top }

// SetBase implements the calling convention of §4.D: a callee sets its
// own base to the caller's top once arguments have been pushed.
func (ctx *Context) SetBase(base int) { ctx.base = base }

// AddTop bumps top by n slots for locals, without writing to them
// (idris_rts.c's `ADDTOP`); overflow is fatal exactly as in Push.
func (ctx *Context) AddTop(n int) {
	if ctx.top+n > ctx.max {
		fatal(ctx.log, "stack overflow", zap.Int("max", ctx.max))
	}
	ctx.top += n
}

// StackSlot accesses the stack relative to base, as compiled code does
// for its own locals and arguments.
func (ctx *Context) StackSlot(i int) Value        { return ctx.stack[ctx.base+i] }
func (ctx *Context) SetStackSlot(i int, v Value)  { ctx.stack[ctx.base+i] = v }

// Ret is the single-value return register.
func (ctx *Context) Ret() Value       { return ctx.ret }
func (ctx *Context) SetRet(v Value)   { ctx.ret = v }

// Reg1 is the scratch register.
func (ctx *Context) Reg1() Value      { return ctx.reg1 }
func (ctx *Context) SetReg1(v Value)  { ctx.reg1 = v }

// walkRoots visits every live root in the order the collector needs:
// the stack between 0 and top, both registers, and any messages
// currently sitting in the inbox (§4.B's "preserve all values reachable
// from the current context's stack, both registers, the inbox").
// Visiting replaces each root in place with the value fn returns, which
// for the GC collector is the to-space copy.
func (ctx *Context) walkRoots(fn func(Value) Value) {
	for i := 0; i < ctx.top; i++ {
		ctx.stack[i] = fn(ctx.stack[i])
	}
	ctx.ret = fn(ctx.ret)
	ctx.reg1 = fn(ctx.reg1)

	ctx.inboxMu.Lock()
	for i := range ctx.inbox {
		ctx.inbox[i].value = fn(ctx.inbox[i].value)
	}
	ctx.inboxMu.Unlock()
}

// DumpStack writes a human-readable dump of the value stack and return
// register, adapted from idris_rts.c's dumpStack/dumpVal (1044:394-435)
// and used only by tests and the demo driver's --dump-stack flag.
func (ctx *Context) DumpStack(w io.Writer) {
	for i := 0; i < ctx.top; i++ {
		fmt.Fprintf(w, "%d: %s\n", i, dumpVal(ctx.stack[i]))
	}
	fmt.Fprintf(w, "RET: %s\n", dumpVal(ctx.ret))
}

func dumpVal(v Value) string {
	if v == 0 {
		return "<nil>"
	}
	if v.IsImmediate() {
		return fmt.Sprintf("%d", v.Int())
	}
	c := v.Cell()
	switch c.hdr.kind {
	case KindCon:
		parts := make([]string, len(c.args))
		for i, a := range c.args {
			parts[i] = dumpVal(a)
		}
		return fmt.Sprintf("%d%v", c.tag, parts)
	case KindString:
		return fmt.Sprintf("STR[%s]", c.str)
	case KindFwd:
		return "FWD->" + dumpVal(c.forward)
	default:
		return c.hdr.kind.String()
	}
}
