package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekPokeByteRoundTrip(t *testing.T) {
	ptr, err := AllocRaw(16)
	require.NoError(t, err)

	PokeByte(ptr, 4, 0x7F)
	assert.Equal(t, byte(0x7F), PeekByte(ptr, 4))
}

func TestPeekPokePtrRoundTrip(t *testing.T) {
	ptr, err := AllocRaw(32)
	require.NoError(t, err)

	PokePtr(ptr, 8, 0xDEADBEEF)
	assert.Equal(t, uintptr(0xDEADBEEF), PeekPtr(ptr, 8))
}

func TestPeekPokeDoubleSingle(t *testing.T) {
	ptr, err := AllocRaw(32)
	require.NoError(t, err)

	PokeDouble(ptr, 0, 3.14159265)
	assert.InDelta(t, 3.14159265, PeekDouble(ptr, 0), 1e-9)

	PokeSingle(ptr, 16, 2.5)
	assert.InDelta(t, 2.5, PeekSingle(ptr, 16), 1e-6)
}

func TestMemsetMemmove(t *testing.T) {
	ptr, err := AllocRaw(16)
	require.NoError(t, err)
	Memset(ptr, 0, 0xAB, 16)
	for i := 0; i < 16; i++ {
		require.Equal(t, byte(0xAB), PeekByte(ptr, i))
	}

	dst, err := AllocRaw(16)
	require.NoError(t, err)
	Memmove(dst, ptr, 0, 0, 16)
	assert.Equal(t, byte(0xAB), PeekByte(dst, 15))
}

func TestAllocReallocCopiesForward(t *testing.T) {
	ctx := newCtx(t)
	orig := Alloc(ctx, 4)
	copy(orig.Cell().ManagedBytes(), []byte{1, 2, 3, 4})

	grown := Realloc(ctx, orig, 4, 8)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, grown.Cell().ManagedBytes())

	shrunk := Realloc(ctx, orig, 4, 2)
	assert.Equal(t, []byte{1, 2}, shrunk.Cell().ManagedBytes())
}
