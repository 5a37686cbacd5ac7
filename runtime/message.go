package runtime

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// message is one inbox slot: a value plus the context that sent it
// (§3.4, §4.G's `(sender-context, value)` pair).
type message struct {
	sender *Context
	value  Value
}

// entryPoint is a spawned context's top-level function: it receives its
// own context and the argument the parent pre-copied onto its stack,
// returning once the "program" represented by the function is done
// (idris_rts.c's `func fn` / `runThread`).
type entryPoint func(child *Context)

// Spawn creates a new context whose stack size mirrors not simply the
// parent's but the parent's *remaining* stack headroom
// (`callvm->stack_max - callvm->valstack`, idris_rts.c:731) and whose
// heap size mirrors the parent's heap size. `arg` is deep-copied from
// the parent's heap into the child's before the entry point runs
// (§4.G). The parent's process counter is incremented for the duration
// of the child's life; an OS thread in the original becomes a goroutine
// here, since Go goroutines are cheap enough that the per-context
// thread-per-VM model translates directly without a pooling layer.
func Spawn(parent *Context, entry entryPoint, arg Value) *Context {
	remainingStack := len(parent.stack) - parent.top
	child := Init(remainingStack, int(parent.heap.limit), parent.log)
	child.processes = 1 // it can itself send and receive messages

	child.heap.lock.Lock()
	childArg := deepCopy(child, arg)
	child.heap.lock.Unlock()

	atomic.AddInt32(&parent.processes, 1)

	go func() {
		Bind(child)
		defer Unbind()

		child.Push(childArg)
		child.SetBase(0)
		child.AddTop(1)

		entry(child)

		atomic.AddInt32(&parent.processes, -1)
		Terminate(child)
	}()

	return child
}

// Send copies value from sender's heap into dest's heap and appends it
// to dest's inbox, waking any goroutine blocked in Recv/PeekTimeout.
// Returns false without side effects if dest is no longer active
// (§4.G, §7).
//
// The copy-retry dance mirrors idris_sendMessage exactly: deep-copy
// while holding dest's allocation lock, and if dest ran a collection
// mid-copy (which would have invalidated any half-finished copy that
// raced a concurrent allocation), discard and copy again now that the
// collection has made room.
func Send(sender, dest *Context, value Value) bool {
	if !dest.Active() {
		return false
	}

	gcs := dest.heap.Collections()

	dest.heap.lock.Lock()
	copied := deepCopy(dest, value)
	dest.heap.lock.Unlock()

	if dest.heap.Collections() > gcs {
		dest.heap.lock.Lock()
		copied = deepCopy(dest, value)
		dest.heap.lock.Unlock()
	}

	dest.inboxMu.Lock()
	if len(dest.inbox) >= defaultInboxCapacity {
		dest.inboxMu.Unlock()
		fatal(dest.log, "inbox full")
		return false // unreachable: fatal exits
	}
	dest.inbox = append(dest.inbox, message{sender: sender, value: copied})
	dest.inboxMu.Unlock()

	dest.inboxBlock.Lock()
	dest.inboxCond.Signal()
	dest.inboxBlock.Unlock()

	return true
}

// findMessage returns the index of the earliest inbox entry matching
// sender (nil matches any), or -1. Caller must hold inboxMu.
func (ctx *Context) findMessage(sender *Context) int {
	for i := range ctx.inbox {
		if sender == nil || ctx.inbox[i].sender == sender {
			return i
		}
	}
	return -1
}

// Peek is the non-blocking check of §4.G: report the sender of the
// earliest inbox entry matching the filter, without consuming it.
func Peek(receiver *Context, sender *Context) (*Context, bool) {
	receiver.inboxMu.Lock()
	defer receiver.inboxMu.Unlock()
	if i := receiver.findMessage(sender); i >= 0 {
		return receiver.inbox[i].sender, true
	}
	return nil, false
}

// waitOnInbox blocks on the inbox condition variable until either it is
// signalled (a Send arrived) or deadline passes, whichever is first.
// Go's sync.Cond has no timed Wait, so a one-shot timer broadcasts the
// same condition variable at the deadline — the Go analogue of
// idris_rts.c's `pthread_cond_timedwait`. Caller must hold inboxBlock.
func (ctx *Context) waitOnInbox(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		ctx.inboxBlock.Lock()
		ctx.inboxCond.Broadcast()
		ctx.inboxBlock.Unlock()
	})
	defer timer.Stop()
	ctx.inboxCond.Wait()
}

// PeekTimeout waits on the inbox condition variable for up to delay if
// no matching message is present yet, then reports as Peek would.
func PeekTimeout(receiver *Context, delay time.Duration) (*Context, bool) {
	if s, ok := Peek(receiver, nil); ok {
		return s, true
	}

	deadline := time.Now().Add(delay)
	receiver.inboxBlock.Lock()
	defer receiver.inboxBlock.Unlock()
	for time.Now().Before(deadline) {
		if s, ok := Peek(receiver, nil); ok {
			return s, true
		}
		receiver.waitOnInbox(deadline)
	}
	return Peek(receiver, nil)
}

// Recv blocks until an entry matching sender is present, then removes
// it from the inbox, sliding every following entry down one slot so the
// remaining entries keep their relative order (§4.G). idris_rts.c polls
// its timed condwait every 3 seconds while blocked forever; reproduced
// here as a repeating 3-second deadline rather than an infinite one so
// a spuriously missed signal can't wedge the receiver forever.
func Recv(receiver *Context, sender *Context) (value Value, from *Context) {
	receiver.inboxBlock.Lock()
	defer receiver.inboxBlock.Unlock()
	for {
		receiver.inboxMu.Lock()
		i := receiver.findMessage(sender)
		if i >= 0 {
			m := receiver.inbox[i]
			receiver.inbox = append(receiver.inbox[:i], receiver.inbox[i+1:]...)
			receiver.inboxMu.Unlock()
			return m.value, m.sender
		}
		receiver.inboxMu.Unlock()
		receiver.waitOnInbox(time.Now().Add(3 * time.Second))
	}
}

// deepCopy structurally clones a value from its source context's heap
// into dst's heap, sharing no mutable storage afterward (§4.G, §8
// property 7). Must be called with dst's allocation lock held.
func deepCopy(dst *Context, v Value) Value {
	if v == 0 || v.IsImmediate() {
		return v
	}
	c := v.Cell()

	switch c.hdr.kind {
	case KindCon:
		if isNullaryTag(c.tag, c.arity) {
			return v // aliases the globally shared nullary cell
		}
		nc := dst.heap.allocateLocked(uintptr(c.arity)*valueWordSize, false)
		nc.hdr.kind = KindCon
		nc.tag = c.tag
		nc.arity = c.arity
		nc.args = make([]Value, c.arity)
		for i, a := range c.args {
			nc.args[i] = deepCopy(dst, a)
		}
		return cellValue(nc)

	case KindFloat:
		nc := dst.heap.allocateLocked(8, false)
		nc.hdr.kind = KindFloat
		nc.f = c.f
		return cellValue(nc)

	case KindString:
		return mkStringLocked(dst, c.str, c.strNil)

	case KindStrOffset:
		// Flattened into a fresh STRING rather than carried across as a
		// STROFFSET: spec §9's open question notes the original
		// deep-copier has no STROFFSET branch at all. Flattening is the
		// safer of the two documented resolutions (see SPEC_FULL.md §7)
		// since it needs no new wire representation.
		root, off := c.resolveStrOffset()
		return mkStringLocked(dst, root.str[off:], false)

	case KindBigInt:
		nc := dst.heap.allocateLocked(valueWordSize, false)
		nc.hdr.kind = KindBigInt
		nc.ptr = c.ptr
		return cellValue(nc)

	case KindPtr:
		nc := dst.heap.allocateLocked(valueWordSize, false)
		nc.hdr.kind = KindPtr
		nc.ptr = c.ptr // the sender is responsible for the pointee being safely shared (§4.G)
		return cellValue(nc)

	case KindManagedPtr:
		nc := dst.heap.allocateLocked(uintptr(len(c.tail)), false)
		nc.hdr.kind = KindManagedPtr
		nc.tail = append([]byte(nil), c.tail...)
		return cellValue(nc)

	case KindBits8, KindBits16, KindBits32, KindBits64:
		nc := dst.heap.allocateLocked(8, false)
		nc.hdr.kind = c.hdr.kind
		nc.bits = c.bits
		return cellValue(nc)

	case KindRawData:
		nc := dst.heap.allocateLocked(uintptr(len(c.tail)), false)
		nc.hdr.kind = KindRawData
		nc.tail = append([]byte(nil), c.tail...)
		return cellValue(nc)

	case KindCData:
		// Resolved as reject (SPEC_FULL.md §7): aliasing a foreign-heap
		// handle across two independently finalized heaps is unsafe, so
		// a CDATA payload is refused rather than silently aliased the
		// way idris_rts.c's doCopyTo does for CT_PTR.
		fatal(dst.log, "cannot deep-copy a CDATA value across contexts", zap.String("kind", "CDATA"))
		return 0

	default:
		fatal(dst.log, "deepCopy: unexpected cell kind", zap.String("kind", c.hdr.kind.String()))
		return 0
	}
}
