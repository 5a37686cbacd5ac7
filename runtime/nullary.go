package runtime

import "sync"

// nullaryCacheSize is the number of possible small tags with a shared,
// pre-allocated, arity-0 constructor cell (§3.5). It matches
// idris_rts.c's `init_nullaries`, which allocates exactly 256 entries.
const nullaryCacheSize = 256

var (
	nullaryOnce  sync.Once
	nullaryTable [nullaryCacheSize]*Cell
)

// initNullaries builds the 256-entry shared table once per process.
// Safe to call from multiple contexts' Init; only the first call does
// any work (mirrors `init_nullaries`, called once from `idris_vm`).
func initNullaries() {
	nullaryOnce.Do(func() {
		for i := 0; i < nullaryCacheSize; i++ {
			nullaryTable[i] = &Cell{
				hdr:   cellHeader{kind: KindCon, nullary: true},
				tag:   uint32(i),
				arity: 0,
				args:  nil,
			}
		}
	})
}

// Nullary returns the shared zero-arity constructor cell for a small
// tag, for compiled code that wants to avoid a per-use allocation.
// Panics if tag is out of range, the same contract violation idris_rts.c
// leaves undefined behaviour for.
func Nullary(tag uint32) Value {
	initNullaries()
	return cellValue(nullaryTable[tag])
}

// isNullaryTag reports whether a CON with this tag/arity aliases into
// the nullary cache rather than being freshly allocated — used by
// MKCON and by the messaging deep-copier (§4.G: "CON with arity 0 and
// tag < 256: aliased to the destination's nullary-cache entry").
func isNullaryTag(tag uint32, arity int) bool {
	return arity == 0 && tag < nullaryCacheSize
}
