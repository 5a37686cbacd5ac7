package runtime

// valueWordSize is the nominal width of a Value slot, used purely for
// the heap's byte-budget accounting (§3.2's 8-byte-rounded chunk size),
// not for any actual memory layout decision.
const valueWordSize = 8

// cellByteSize approximates how many bytes a cell would occupy in the
// original's flat Closure representation, for GC bookkeeping and OOM
// diagnostics. It is recomputed from the cell's own fields rather than
// cached, since a cell never changes shape after construction.
func cellByteSize(c *Cell) uintptr {
	switch c.hdr.kind {
	case KindCon:
		return uintptr(c.arity) * valueWordSize
	case KindFloat:
		return 8
	case KindString:
		return uintptr(len(c.str)) + 1
	case KindStrOffset:
		return valueWordSize + 8
	case KindBigInt:
		return valueWordSize
	case KindPtr:
		return valueWordSize
	case KindManagedPtr, KindRawData:
		return uintptr(len(c.tail))
	case KindCData:
		return valueWordSize
	case KindBits8, KindBits16, KindBits32, KindBits64:
		return 8
	default:
		return valueWordSize
	}
}

// collector implements a depth-first, memoized Cheney-style copy: a
// from-space cell is visited once, immediately overwritten with a FWD
// header pointing at its to-space copy (so cycles and shared references
// are handled identically to a breadth-first scan-pointer collector —
// see DESIGN.md and spec §9's note that this runtime never itself
// builds cycles), and only then has its children copied.
type collector struct {
	dst         *[]*Cell
	bytesCopied uintptr
}

// copyValue is the root/field copy function threaded through
// Context.walkRoots and recursive cell copies. Immediates and nil pass
// through unchanged (§8 property 2's "every live value is reachable").
func (g *collector) copyValue(v Value) Value {
	if v == 0 || v.IsImmediate() {
		return v
	}
	c := v.Cell()
	if c.hdr.nullary {
		// Never collected, never forwarded: F's shared read-only table.
		return v
	}
	if c.hdr.kind == KindFwd {
		return c.forward
	}

	nc := &Cell{hdr: cellHeader{kind: c.hdr.kind}}
	*g.dst = append(*g.dst, nc)
	g.bytesCopied += roundUp8(cellByteSize(c)) + cellOverhead

	newVal := cellValue(nc)
	oldKind := c.hdr.kind
	// Forward the old cell before recursing: a cycle or shared pointer
	// back to c during child-copying must see the new address, not
	// recurse forever.
	c.hdr.kind = KindFwd
	c.forward = newVal

	switch oldKind {
	case KindCon:
		nc.tag = c.tag
		nc.arity = c.arity
		nc.args = make([]Value, len(c.args))
		for i, a := range c.args {
			nc.args[i] = g.copyValue(a)
		}
	case KindFloat:
		nc.f = c.f
	case KindString:
		nc.str = c.str
		nc.strNil = c.strNil
	case KindStrOffset:
		nc.strRoot = g.copyValue(cellValue(c.strRoot)).Cell()
		nc.strByte = c.strByte
	case KindBigInt, KindPtr:
		nc.ptr = c.ptr
	case KindManagedPtr:
		nc.tail = append([]byte(nil), c.tail...)
	case KindRawData:
		nc.tail = append([]byte(nil), c.tail...)
	case KindCData:
		nc.foreign = c.foreign
		if nc.foreign != nil {
			nc.foreign.markReachable()
		}
	case KindBits8, KindBits16, KindBits32, KindBits64:
		nc.bits = c.bits
	}
	return newVal
}
