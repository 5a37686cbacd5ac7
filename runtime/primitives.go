package runtime

import (
	goruntime "runtime"
	"unicode/utf8"
)

// MkFloat allocates a FLOAT cell (`MKFLOAT`, idris_rts.c:265-270).
func MkFloat(ctx *Context, val float64) Value {
	c := ctx.heap.Allocate(8, false)
	c.hdr.kind = KindFloat
	c.f = val
	return cellValue(c)
}

// mkStringLocked allocates a STRING cell whose bytes are s, or whose
// string pointer is nil if isNil is set — the MKSTR(NULL) case §4.E
// requires to be distinguishable from the empty string. Caller must
// already hold the heap's allocation lock (used both by the plain and
// concurrent entry points, and by message.go's deepCopy).
func mkStringLocked(ctx *Context, s string, isNil bool) Value {
	c := ctx.heap.allocateLocked(uintptr(len(s))+1, false)
	c.hdr.kind = KindString
	c.str = s
	c.strNil = isNil
	return cellValue(c)
}

// MkString allocates a STRING cell copying src. A nil src produces a
// cell whose string pointer is null (`MKSTR`, idris_rts.c:272-289).
func MkString(ctx *Context, src *string) Value {
	ctx.heap.lock.Lock()
	defer ctx.heap.lock.Unlock()
	if src == nil {
		return mkStringLocked(ctx, "", true)
	}
	return mkStringLocked(ctx, *src, false)
}

// MkPtr allocates a PTR cell carrying a raw, untracked pointer
// (`MKPTR`). The runtime does not own or trace what it points to.
func MkPtr(ctx *Context, ptr uintptr) Value {
	c := ctx.heap.Allocate(8, false)
	c.hdr.kind = KindPtr
	c.ptr = ptrFromUintptr(ptr)
	return cellValue(c)
}

// MkManagedPtr allocates a MANAGEDPTR cell owning a copy of data
// (`MKMPTR`, idris_rts.c:320-329).
func MkManagedPtr(ctx *Context, data []byte) Value {
	c := ctx.heap.Allocate(uintptr(len(data)), false)
	c.hdr.kind = KindManagedPtr
	c.tail = append([]byte(nil), data...)
	return cellValue(c)
}

// MkCData allocates a CDATA cell referencing a foreign-heap entry,
// calling the foreign heap's InsertIfNeeded first, which is a no-op:
// the handle is registered by CreateItem (`MKCDATA`, idris_rts.c:297-303).
func MkCData(ctx *Context, item *ForeignItem) Value {
	ctx.foreign.InsertIfNeeded(item)
	c := ctx.heap.Allocate(8, false)
	c.hdr.kind = KindCData
	c.foreign = item
	return cellValue(c)
}

// MkBits allocates a BITS8/16/32/64 cell depending on width, truncating
// val to that width first (`MKB8`..`MKB64`, idris_rts.c:366-392).
func MkBits(ctx *Context, width int, val uint64) Value {
	var kind Kind
	switch width {
	case 8:
		kind, val = KindBits8, val&0xFF
	case 16:
		kind, val = KindBits16, val&0xFFFF
	case 32:
		kind, val = KindBits32, val&0xFFFFFFFF
	case 64:
		kind = KindBits64
	default:
		fatal(ctx.log, "MkBits: unsupported width")
	}
	c := ctx.heap.Allocate(8, false)
	c.hdr.kind = kind
	c.bits = val
	return cellValue(c)
}

// MkCon allocates a CON cell with the given tag and argument values,
// aliasing into the nullary cache for the zero-arity small-tag case
// rather than allocating (§3.5).
func MkCon(ctx *Context, tag uint32, args []Value) Value {
	if isNullaryTag(tag, len(args)) {
		return Nullary(tag)
	}
	c := ctx.heap.Allocate(uintptr(len(args))*valueWordSize, false)
	c.hdr.kind = KindCon
	c.tag = tag
	c.arity = len(args)
	c.args = append([]Value(nil), args...)
	return cellValue(c)
}

// Concat allocates a STRING large enough for both operands' bytes
// joined (`idris_concat`, idris_rts.c:551-562).
func Concat(ctx *Context, l, r Value) Value {
	return MkString(ctx, strPtr(l.GetStr()+r.GetStr()))
}

func strPtr(s string) *string { return &s }

// StrHead returns the leading Unicode codepoint of s as an immediate
// integer (`idris_strHead`, idris_rts.c:597-599).
func StrHead(s Value) Value {
	return StrIndex(s, MkImmediate(0))
}

// StrTail prefers the O(1) path of allocating a STROFFSET pointing past
// the first codepoint, falling back to a fresh copy if there isn't
// guaranteed room — the STROFFSET would otherwise dangle if a
// collection during its own allocation moved the root string
// (`idris_strTail`, idris_rts.c:612-637).
func StrTail(ctx *Context, s Value) Value {
	const stroffsetSize = valueWordSize + 8
	str := s.GetStr()
	_, n := utf8.DecodeRuneInString(str)

	if ctx.heap.Space(stroffsetSize) {
		root, off := s.Cell().resolveStrOffset()
		c := ctx.heap.Allocate(stroffsetSize, false)
		c.hdr.kind = KindStrOffset
		c.strRoot = root
		c.strByte = off + n
		return cellValue(c)
	}
	return MkString(ctx, strPtr(str[n:]))
}

// StrCons allocates a STRING whose bytes are the UTF-8 encoding of c
// followed by xs's bytes (`idris_strCons`, idris_rts.c:639-660).
func StrCons(ctx *Context, c Value, xs Value) Value {
	r := rune(c.Int())
	return MkString(ctx, strPtr(string(r)+xs.GetStr()))
}

// StrIndex returns the codepoint at position i as an immediate integer
// (`idris_strIndex`, idris_rts.c:662-665).
func StrIndex(s Value, i Value) Value {
	str := s.GetStr()
	idx := i.Int()
	pos := 0
	for n := 0; n < idx; n++ {
		_, size := utf8.DecodeRuneInString(str[pos:])
		pos += size
	}
	r, _ := utf8.DecodeRuneInString(str[pos:])
	return MkImmediate(int(r))
}

// Substr returns the codepoint range [offset, offset+length) of str as
// a fresh STRING (`idris_substr`, idris_rts.c:667-676).
func Substr(ctx *Context, offset, length, str Value) Value {
	s := str.GetStr()
	start := advanceRunes(s, offset.Int())
	end := advanceRunes(s[start:], length.Int()) + start
	return MkString(ctx, strPtr(s[start:end]))
}

func advanceRunes(s string, n int) int {
	pos := 0
	for i := 0; i < n && pos < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[pos:])
		pos += size
	}
	return pos
}

// StrRev reverses str by codepoint (`idris_strRev`, idris_rts.c:678-686).
func StrRev(ctx *Context, str Value) Value {
	s := str.GetStr()
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return MkString(ctx, strPtr(string(runes)))
}

// StrLen counts codepoints, not bytes (`idris_strlen`).
func StrLen(str Value) int {
	return utf8.RuneCountInString(str.GetStr())
}

// StrEq and StrLt implement byte-lexicographic string comparison
// (`idris_streq`/`idris_strlt`).
func StrEq(l, r Value) bool { return l.GetStr() == r.GetStr() }
func StrLt(l, r Value) bool { return l.GetStr() < r.GetStr() }

// SystemInfo answers the enumerated query of §4.E/§6: 0 -> backend
// name, 1 -> target OS, 2 -> target triple (`idris_systemInfo`,
// idris_rts.c:688-699).
func SystemInfo(ctx *Context, index int) Value {
	switch index {
	case 0:
		return MkString(ctx, strPtr("go"))
	case 1:
		return MkString(ctx, strPtr(goruntime.GOOS))
	case 2:
		return MkString(ctx, strPtr(goruntime.GOOS+"-"+goruntime.GOARCH))
	default:
		return MkString(ctx, strPtr(""))
	}
}
