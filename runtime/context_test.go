package runtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopRoundTrip(t *testing.T) {
	ctx := Init(4, 1<<12, nil)
	ctx.Push(MkImmediate(1))
	ctx.Push(MkImmediate(2))
	assert.Equal(t, 2, ctx.Pop().Int())
	assert.Equal(t, 1, ctx.Pop().Int())
}

func TestAddTopAdvancesWithoutWriting(t *testing.T) {
	ctx := Init(8, 1<<12, nil)
	ctx.AddTop(3)
	assert.Equal(t, 3, ctx.Top())
}

func TestTerminateFlipsInactiveAndRunsFinalizers(t *testing.T) {
	ctx := Init(8, 1<<12, nil)
	ran := false
	item := ctx.Foreign().CreateItem("handle", func(data interface{}) { ran = true })
	_ = item

	_, err := Terminate(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, ctx.Active())
}

func TestBindUnbindSetsCurrent(t *testing.T) {
	ctx := Init(8, 1<<12, nil)
	Bind(ctx)
	defer Unbind()
	assert.Same(t, ctx, Current())
}

func TestDumpStackRendersImmediatesAndStrings(t *testing.T) {
	ctx := Init(8, 1<<12, nil)
	s := "x"
	ctx.Push(MkImmediate(5))
	ctx.Push(MkString(ctx, &s))

	var buf bytes.Buffer
	ctx.DumpStack(&buf)
	out := buf.String()
	assert.True(t, strings.Contains(out, "5"))
	assert.True(t, strings.Contains(out, "STR[x]"))
}
