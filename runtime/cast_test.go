package runtime

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCastIntStrRoundTrip(t *testing.T) {
	ctx := newCtx(t)
	i := MkImmediate(-42)
	s := CastIntStr(ctx, i)
	assert.Equal(t, "-42", s.GetStr())
	assert.Equal(t, -42, CastStrInt(s).Int())
}

func TestCastBitsStrUnsigned(t *testing.T) {
	ctx := newCtx(t)
	b := MkBits(ctx, 8, 250)
	assert.Equal(t, "250", CastBitsStr(ctx, b).GetStr())
}

func TestCastStrIntToleratesTrailingNewline(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("17\n"))
	assert.Equal(t, 17, CastStrInt(s).Int())
}

func TestCastStrIntRejectsGarbageSuffix(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("17abc"))
	assert.Equal(t, 0, CastStrInt(s).Int())
}

// TestCastStrIntOnlyChecksFirstTrailingByte matches idris_rts.c's
// `*end == '\n' || *end == '\r'` check: only the single byte right
// after the parsed digits matters, not the whole remainder.
func TestCastStrIntOnlyChecksFirstTrailingByte(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("42\r\n"))
	assert.Equal(t, 42, CastStrInt(s).Int())
}

func TestCastFloatStrStrFloatRoundTrip(t *testing.T) {
	ctx := newCtx(t)
	f := MkFloat(ctx, 3.25)
	s := CastFloatStr(ctx, f)
	back := CastStrFloat(ctx, s)
	assert.InDelta(t, 3.25, back.Cell().Float(), 1e-9)
}

func TestCastStrFloatDefaultsToZeroOnGarbage(t *testing.T) {
	ctx := newCtx(t)
	s := MkString(ctx, strPtr("not-a-number"))
	assert.Equal(t, float64(0), CastStrFloat(ctx, s).Cell().Float())
}

func TestStrerrorMatchesErrno(t *testing.T) {
	assert.NotEmpty(t, Strerror(1))
	assert.Equal(t, syscall.Errno(1).Error(), Strerror(1))
}
