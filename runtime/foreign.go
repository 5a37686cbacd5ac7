package runtime

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Finalizer releases an externally allocated resource. Finalizer order
// across a single sweep is unspecified, matching spec §4.C.
type Finalizer func(data interface{})

// ForeignItem is one entry in a context's foreign heap (§3.3): an
// opaque externally-owned resource, reachable from the moving heap only
// through CDATA cells that point at it.
type ForeignItem struct {
	data      interface{}
	finalizer Finalizer
	reachable bool

	// prev/next thread this item into its owning ForeignHeap's live
	// list. The doubly-linked sentinel-list shape is adapted from
	// cloudfly-readgo/mcentral.go's mSpanList (nonempty/empty span
	// lists strung around a sentinel node) — here used so an
	// unreachable item can be unlinked from the sweep in O(1) instead
	// of compacting a slice.
	prev, next *ForeignItem
}

func (it *ForeignItem) markReachable() { it.reachable = true }

// Data returns the foreign item's externally-owned payload.
func (it *ForeignItem) Data() interface{} { return it.data }

// ForeignHeap is the companion heap of §3.3/§4.C.
type ForeignHeap struct {
	mu       sync.Mutex
	sentinel ForeignItem // list head/tail; never itself a live item
	log      *zap.Logger
}

// NewForeignHeap initialises an empty foreign heap.
func NewForeignHeap(log *zap.Logger) *ForeignHeap {
	if log == nil {
		log = zap.NewNop()
	}
	h := &ForeignHeap{log: log}
	h.sentinel.prev = &h.sentinel
	h.sentinel.next = &h.sentinel
	return h
}

func (h *ForeignHeap) insertBack(it *ForeignItem) {
	last := h.sentinel.prev
	it.prev = last
	it.next = &h.sentinel
	last.next = it
	h.sentinel.prev = it
}

func (h *ForeignHeap) remove(it *ForeignItem) {
	it.prev.next = it.next
	it.next.prev = it.prev
	it.prev, it.next = nil, nil
}

// CreateItem registers an externally allocated region, as idris_rts.c's
// `cdata_manage`/`c_heap_create_item` do.
func (h *ForeignHeap) CreateItem(data interface{}, finalizer Finalizer) *ForeignItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	it := &ForeignItem{data: data, finalizer: finalizer}
	h.insertBack(it)
	return it
}

// InsertIfNeeded is a no-op for items already created through
// CreateItem; it exists to mirror `c_heap_insert_if_needed`, called
// from MKCDATA before building the CDATA cell (§4.C). A Go ForeignItem
// is always already tracked from CreateItem, so this does nothing; it
// neither validates nor links the handle.
func (h *ForeignHeap) InsertIfNeeded(it *ForeignItem) {
	// Nothing to do: CreateItem already linked it. Kept as a named
	// call so the allocation call sites in primitives.go read the same
	// way idris_rts.c's MKCDATA/MKCDATAc do.
	_ = it
}

// sweep resets every reached item's reachable flag back to false for the
// next generation, and invokes the finalizer of every item not marked
// reachable since the previous sweep, then removes it. Called by the
// heap's collector once root-copying (which calls markReachable on any
// CDATA cell it copies) has finished.
func (h *ForeignHeap) sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var finalizeErr error
	it := h.sentinel.next
	for it != &h.sentinel {
		next := it.next
		if it.reachable {
			it.reachable = false // reset for the next generation
		} else {
			h.remove(it)
			if it.finalizer != nil {
				if err := runFinalizer(it); err != nil {
					// Collect but do not stop the sweep: every other
					// finalizer must still run exactly once, per §4.C.
					if finalizeErr == nil {
						finalizeErr = err
					} else {
						finalizeErr = errors.Wrap(finalizeErr, err.Error())
					}
				}
			}
		}
		it = next
	}
	if finalizeErr != nil {
		h.log.Warn("foreign heap finalizer failed during sweep", zap.Error(finalizeErr))
	}
}

func runFinalizer(it *ForeignItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("finalizer panicked: %v", r)
		}
	}()
	it.finalizer(it.data)
	return nil
}

// Destroy invokes every remaining finalizer, unconditionally, and
// empties the heap — `c_heap_destroy` in idris_rts.c, called from
// `terminate`.
func (h *ForeignHeap) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for it := h.sentinel.next; it != &h.sentinel; {
		next := it.next
		if it.finalizer != nil {
			if err := runFinalizer(it); err != nil && firstErr == nil {
				firstErr = errors.Wrap(err, "foreign heap teardown")
			}
		}
		it.prev, it.next = nil, nil
		it = next
	}
	h.sentinel.prev = &h.sentinel
	h.sentinel.next = &h.sentinel
	return firstErr
}
