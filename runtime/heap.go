package runtime

import (
	"go.uber.org/zap"
)

// cellOverhead approximates the 8-byte chunk-size word idris_rts.c
// prepends to every allocation (`allocate`, idris_rts.c:223). We do not
// lay cells out as raw bytes the way the original does — Cell is a Go
// struct owned by Go's own allocator, referenced through ordinary
// pointers so the Go GC can see through it — but callers still pay for
// that word in the heap's byte budget, so the `space`/collection-trigger
// math matches the original's rounding behaviour.
const cellOverhead = 8

// roundUp8 rounds n up to the next multiple of 8, mirroring
// `if ((size & 7)!=0) size = 8 + ((size >> 3) << 3);` in idris_rts.c.
func roundUp8(n uintptr) uintptr {
	if n&7 != 0 {
		return 8 + (n>>3)<<3
	}
	return n
}

// Heap is the per-context moving (bump-allocated, copying-collected)
// heap of §3.2/§4.B. Rather than a raw `[base, end)` byte range cast
// into cell structs (unsafe and unsupported under the Go GC once cells
// hold Go pointers/slices/strings), the heap is a bump-allocated arena
// of *Cell, with a parallel byte budget that tracks the same 8-byte-
// rounded accounting the original uses to decide when to collect. See
// DESIGN.md for why this substitution is necessary and still faithful
// to the contract (bump allocation, safe-point collection, root
// rewriting via FWD cells).
type Heap struct {
	lock reentrantMutex

	limit uintptr // total byte budget, §3.2 `end - base`
	used  uintptr // bytes consumed by live + dead cells since last collect

	arena []*Cell // bump-allocated cells since the last collection

	ctx *Context // owning context, for root enumeration during collect
	log *zap.Logger

	collections uint64
	reclaimed   uintptr
}

// NewHeap allocates a heap with the given byte budget. A zero-size
// RAWDATA region is reserved nowhere special — the budget is purely an
// accounting limit, since Go itself owns the backing memory for *Cell.
func NewHeap(ctx *Context, size uintptr, log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Heap{
		limit: size,
		ctx:   ctx,
		log:   log,
		arena: make([]*Cell, 0, 1024),
	}
}

// Space reports whether `size` additional bytes fit without triggering a
// collection — used by strTail to decide between an O(1) STROFFSET and
// a copying fallback (spec §4.E).
func (h *Heap) Space(size uintptr) bool {
	return h.used+roundUp8(size)+cellOverhead < h.limit
}

// Require guarantees that a subsequent run of allocations totalling
// `size` bytes will not trigger a collection before Done is called. It
// preemptively collects if needed, then takes the allocation lock; the
// lock is reentrant so nested Require/Done pairs are safe (§4.B).
func (h *Heap) Require(size uintptr) {
	if !h.Space(size) {
		h.Collect()
	}
	h.lock.Lock()
}

// Done releases what Require acquired.
func (h *Heap) Done() {
	h.lock.Unlock()
}

// Allocate returns a new cell with the given byte footprint charged
// against the budget, running a single collect-and-retry if the first
// attempt doesn't fit (§4.B). outerLocked suppresses the lock
// acquisition when the caller already holds it (e.g. inside Require, or
// during a message deep-copy that holds the destination's lock for the
// whole operation — idris_rts.c's `allocate(size, outerlock)`).
func (h *Heap) Allocate(size uintptr, outerLocked bool) *Cell {
	if !outerLocked {
		h.lock.Lock()
		defer h.lock.Unlock()
	}
	return h.allocateLocked(size, false)
}

func (h *Heap) allocateLocked(size uintptr, retried bool) *Cell {
	chunk := roundUp8(size) + cellOverhead
	if h.used+chunk >= h.limit {
		if retried {
			fatal(h.log, "out of memory", zap.Uint64("used", uint64(h.used)), zap.Uint64("limit", uint64(h.limit)))
		}
		h.collectLocked()
		return h.allocateLocked(size, true)
	}
	h.used += chunk
	c := &Cell{}
	h.arena = append(h.arena, c)
	if h.ctx != nil {
		h.ctx.stats.recordAlloc(chunk)
	}
	return c
}

// Collect runs a safe-point copying collection: every cell reachable
// from the owning context's stack, registers, and inbox is preserved;
// everything else is reclaimed. See heap_gc.go for the traversal.
func (h *Heap) Collect() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.collectLocked()
}

func (h *Heap) collectLocked() {
	before := h.used
	newArena := make([]*Cell, 0, len(h.arena)/2+1)
	gc := &collector{dst: &newArena}

	if h.ctx != nil {
		h.ctx.walkRoots(gc.copyValue)
	}

	h.arena = newArena
	h.used = gc.bytesCopied
	h.collections++
	reclaimed := uintptr(0)
	if before > h.used {
		reclaimed = before - h.used
	}
	h.reclaimed += reclaimed

	if h.ctx != nil {
		h.ctx.stats.recordCollection()
		h.ctx.foreign.sweep()
	}

	h.log.Debug("collection complete",
		zap.Uint64("generation", h.collections),
		zap.Uint64("bytes_before", uint64(before)),
		zap.Uint64("bytes_after", uint64(h.used)),
		zap.Uint64("bytes_reclaimed", uint64(reclaimed)),
	)
}

// Collections reports how many collections this heap has run.
func (h *Heap) Collections() uint64 { return h.collections }
