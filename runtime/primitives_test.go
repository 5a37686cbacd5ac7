package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx(t *testing.T) *Context {
	t.Helper()
	return Init(64, 1<<16, nil)
}

func TestMkStringNilVsEmpty(t *testing.T) {
	ctx := newCtx(t)
	nilStr := MkString(ctx, nil)
	emptyStr := MkString(ctx, strPtr(""))

	_, isNil := nilStr.Cell().Str()
	_, isEmpty := emptyStr.Cell().Str()
	assert.True(t, isNil)
	assert.False(t, isEmpty)
}

func TestConcat(t *testing.T) {
	ctx := newCtx(t)
	l := MkString(ctx, strPtr("foo"))
	r := MkString(ctx, strPtr("bar"))
	assert.Equal(t, "foobar", Concat(ctx, l, r).GetStr())
}

func TestStrHeadTailCodepointAware(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("héllo")) // é is two UTF-8 bytes, one codepoint
	assert.Equal(t, 'h', rune(StrHead(s).Int()))
	assert.Equal(t, "éllo", StrTail(ctx, s).GetStr())
}

// TestStrTailTakesStrOffsetPathWhenRoomy confirms the O(1) path is
// actually taken (not just that the observable string is correct) when
// the heap has ample headroom.
func TestStrTailTakesStrOffsetPathWhenRoomy(t *testing.T) {
	ctx := newCtx(t)
	root := MkString(ctx, strPtr("hello"))
	tail := StrTail(ctx, root)
	require.Equal(t, KindStrOffset, tail.Kind())
	assert.Equal(t, "ello", tail.GetStr())
}

// TestStrTailFallsBackToFreshStringWhenHeapNearFull exercises §8's
// "STROFFSET tail" scenario on the side the spec actually cares about:
// when Space(stroffsetSize) reports no guaranteed room, StrTail must
// fall back to a plain, freshly copied STRING rather than risk a
// STROFFSET whose root could move before the STROFFSET itself is
// rooted (idris_rts.c:612-637).
func TestStrTailFallsBackToFreshStringWhenHeapNearFull(t *testing.T) {
	// "hello" costs roundUp8(6)+cellOverhead = 16 bytes. With a 40-byte
	// heap that leaves exactly 24 bytes, which fails
	// Space(stroffsetSize=16) (16+16+8=40, not < 40) but still fits a
	// fresh "ello" STRING cell (roundUp8(5)+8=16 bytes).
	ctx := Init(64, 40, nil)
	root := MkString(ctx, strPtr("hello"))
	ctx.Push(root)

	require.False(t, ctx.heap.Space(valueWordSize+8))

	tail := StrTail(ctx, root)
	assert.Equal(t, KindString, tail.Kind())
	assert.Equal(t, "ello", tail.GetStr())
}

func TestStrConsIndexLen(t *testing.T) {
	ctx := newCtx(t)
	xs := MkString(ctx, strPtr("bc"))
	full := StrCons(ctx, MkImmediate('a'), xs)
	assert.Equal(t, "abc", full.GetStr())
	assert.Equal(t, 3, StrLen(full))
	assert.Equal(t, 'b', rune(StrIndex(full, MkImmediate(1)).Int()))
}

func TestSubstr(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("abcdef"))
	got := Substr(ctx, MkImmediate(2), MkImmediate(3), s)
	assert.Equal(t, "cde", got.GetStr())
}

func TestStrRev(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("abc"))
	assert.Equal(t, "cba", StrRev(ctx, s).GetStr())
}

func TestStrEqStrLt(t *testing.T) {
	ctx := newCtx(t)
	a := MkString(ctx, strPtr("abc"))
	b := MkString(ctx, strPtr("abd"))
	assert.True(t, StrLt(a, b))
	assert.False(t, StrEq(a, b))
	assert.True(t, StrEq(a, MkString(ctx, strPtr("abc"))))
}

func TestMkConAliasesNullaryCache(t *testing.T) {
	ctx := newCtx(t)
	a := MkCon(ctx, 3, nil)
	b := MkCon(ctx, 3, nil)
	assert.Equal(t, a, b) // same nullary cell, not a fresh allocation each time
}

func TestMkBitsTruncatesToWidth(t *testing.T) {
	ctx := newCtx(t)
	v := MkBits(ctx, 8, 0x1FF)
	assert.Equal(t, uint64(0xFF), v.Cell().Bits())
}

func TestSystemInfo(t *testing.T) {
	ctx := newCtx(t)
	assert.Equal(t, "go", SystemInfo(ctx, 0).GetStr())
	require.NotEmpty(t, SystemInfo(ctx, 1).GetStr())
}
