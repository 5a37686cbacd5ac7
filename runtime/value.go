package runtime

import (
	"fmt"
	"unsafe"
)

// Value is the universal representation passed between compiled
// functions: either an immediate integer folded into the word itself, or
// a pointer to a heap cell. The low bit is the tag: 1 means immediate,
// 0 means pointer. Folding small integers into the pointer word avoids
// an allocation on the hot arithmetic path; decoding is a test-and-shift.
type Value uintptr

// Kind identifies the payload shape of a heap cell. Compiled code is only
// ever supposed to touch fields consistent with a cell's Kind; accessors
// below are unchecked the way the teacher's release-mode field access is
// unchecked. There is no checked variant.
type Kind uint8

const (
	KindCon Kind = iota
	KindFloat
	KindString
	KindStrOffset
	KindBigInt
	KindPtr
	KindManagedPtr
	KindCData
	KindBits8
	KindBits16
	KindBits32
	KindBits64
	KindRawData
	KindFwd
)

func (k Kind) String() string {
	switch k {
	case KindCon:
		return "CON"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindStrOffset:
		return "STROFFSET"
	case KindBigInt:
		return "BIGINT"
	case KindPtr:
		return "PTR"
	case KindManagedPtr:
		return "MANAGEDPTR"
	case KindCData:
		return "CDATA"
	case KindBits8:
		return "BITS8"
	case KindBits16:
		return "BITS16"
	case KindBits32:
		return "BITS32"
	case KindBits64:
		return "BITS64"
	case KindRawData:
		return "RAWDATA"
	case KindFwd:
		return "FWD"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// cellHeader is the first field of every heap cell: the cell's kind and
// its nullary-cache flag. Cells are Go structs, not raw bytes, so no
// chunk-size word precedes it in memory; heap.go charges that word to
// the byte budget instead (cellOverhead). The collector forwards a
// from-space cell by setting its kind to KindFwd and storing the new
// address in the cell's forward field.
type cellHeader struct {
	kind Kind

	// nullary marks one of the 256 process-wide pre-allocated zero-arity
	// constructor cells (§3.5). Such cells live outside every context's
	// heap and are never forwarded or reclaimed.
	nullary bool
}

// Cell is the in-memory layout backing every heap-resident value. Only
// the fields relevant to `kind` are meaningful; this mirrors the
// original C union (Closure.info) but as a Go struct with every variant
// inline; the collector and the deep copier read the header first and
// then copy the fields of that kind.
//
// Managed-pointer and raw-data bytes are owned by the cell in tail.
// String bytes are held in str.
type Cell struct {
	hdr cellHeader

	// CON
	tag   uint32
	args  []Value
	arity int

	// FLOAT
	f float64

	// STRING: str holds the string's bytes; it is what deep-copy and GC
	// copy. tail is not used by STRING cells.
	str    string
	strNil bool // distinguishes MKSTR(nil) from MKSTR("")

	// STROFFSET
	strRoot  *Cell
	strByte  int

	// BIGINT / PTR
	ptr unsafe.Pointer

	// MANAGEDPTR / RAWDATA: owned inline bytes
	tail []byte

	// CDATA
	foreign *ForeignItem

	// BITS8/16/32/64
	bits uint64

	// FWD
	forward Value
}

const immediateTagBit = Value(1)

// MkImmediate folds a signed integer into the pointer word. Compiled
// code never dereferences the result.
func MkImmediate(n int) Value {
	return Value(uintptr(n)<<1) | immediateTagBit
}

// IsImmediate tests the low bit.
func (v Value) IsImmediate() bool {
	return v&immediateTagBit != 0
}

// IsHeap is the complement of IsImmediate. §8 property 1: exactly one
// of the two holds for every value.
func (v Value) IsHeap() bool {
	return !v.IsImmediate()
}

// Int recovers the signed integer carried by an immediate value via an
// arithmetic right shift, undoing MkImmediate's left shift.
func (v Value) Int() int {
	return int(int(v) >> 1)
}

// Cell dereferences a heap pointer value. Calling this on an immediate
// value is a programmer error in compiled code; the runtime does not
// guard against it on the hot path, matching the teacher's unchecked
// release-mode accessors.
func (v Value) Cell() *Cell {
	return (*Cell)(unsafe.Pointer(uintptr(v)))
}

// cellValue is the inverse of Cell: the pointer word for a heap cell.
func cellValue(c *Cell) Value {
	return Value(uintptr(unsafe.Pointer(c)))
}

// Kind reports a heap cell's kind. Calling Kind on an immediate value is
// not checked; callers are expected to have already branched on
// IsImmediate.
func (v Value) Kind() Kind {
	return v.Cell().hdr.kind
}

// Tag returns a CON cell's constructor tag.
func (c *Cell) Tag() uint32 { return c.tag }

// Arity returns a CON cell's argument count; invariant §3.1(ii) requires
// len(args) == arity at all times.
func (c *Cell) Arity() int { return c.arity }

// Args returns a CON cell's argument slots.
func (c *Cell) Args() []Value { return c.args }

// Float returns a FLOAT cell's payload.
func (c *Cell) Float() float64 { return c.f }

// Str returns a STRING cell's bytes, or ("", true) for the MKSTR(nil)
// case §4.E specifies as distinguishable from the empty string.
func (c *Cell) Str() (s string, isNil bool) { return c.str, c.strNil }

// Bits returns a BITS* cell's payload, already truncated to its declared
// width by MkBits (all widths are stored in a uint64).
func (c *Cell) Bits() uint64 { return c.bits }

// Ptr returns a PTR/BIGINT cell's raw pointer.
func (c *Cell) Ptr() unsafe.Pointer { return c.ptr }

// ManagedBytes returns a MANAGEDPTR/RAWDATA cell's owned inline bytes.
func (c *Cell) ManagedBytes() []byte { return c.tail }

// ForeignHandle returns a CDATA cell's foreign-heap entry.
func (c *Cell) ForeignHandle() *ForeignItem { return c.foreign }

// resolveStrOffset walks a STROFFSET back to its root STRING cell, per
// invariant §3.1(iv): the root is an actual STRING after at most one
// indirection in the on-disk representation, though idris_rts.c's own
// strTail walks a loop "in theory, at most one step" — this mirrors that
// defensive loop rather than assuming the single-step invariant holds.
func (c *Cell) resolveStrOffset() (root *Cell, offset int) {
	cur := c
	off := 0
	for cur.hdr.kind == KindStrOffset {
		off += cur.strByte
		cur = cur.strRoot
	}
	return cur, off
}

// GetStr returns the effective string for a STRING or STROFFSET cell,
// resolving any offset chain first.
func (v Value) GetStr() string {
	c := v.Cell()
	if c.hdr.kind == KindStrOffset {
		root, off := c.resolveStrOffset()
		return root.str[off:]
	}
	return c.str
}
