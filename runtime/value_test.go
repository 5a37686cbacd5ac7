package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediateRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, -1, 42, -1000000, 1 << 30} {
		v := MkImmediate(n)
		assert.True(t, v.IsImmediate())
		assert.False(t, v.IsHeap())
		assert.Equal(t, n, v.Int())
	}
}

func TestHeapValueIsNotImmediate(t *testing.T) {
	ctx := Init(256, 1<<16, nil)
	v := MkCon(ctx, 300, nil) // tag >= 256 forces a real allocation, not the nullary cache
	assert.False(t, v.IsImmediate())
	assert.True(t, v.IsHeap())
}

func TestConRoundTrip(t *testing.T) {
	ctx := Init(256, 1<<16, nil)
	args := []Value{MkImmediate(1), MkImmediate(2), MkImmediate(3)}
	v := MkCon(ctx, 500, args)
	c := v.Cell()
	require.Equal(t, uint32(500), c.Tag())
	require.Equal(t, 3, c.Arity())
	assert.Equal(t, args, c.Args())
}

func TestStrOffsetResolvesToRoot(t *testing.T) {
	ctx := Init(256, 1<<16, nil)
	s := "hello"
	root := MkString(ctx, &s)
	tail := StrTail(ctx, root)

	got := tail.GetStr()
	assert.Equal(t, "ello", got)
}

func TestKindStringer(t *testing.T) {
	assert.Equal(t, "CON", KindCon.String())
	assert.Equal(t, "STRING", KindString.String())
	assert.Equal(t, "FWD", KindFwd.String())
}
