package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecvDeliversValue(t *testing.T) {
	parent := Init(64, 1<<16, nil)
	child := Init(64, 1<<16, nil)
	child.processes = 1

	s := "payload"
	ok := Send(parent, child, MkString(parent, &s))
	require.True(t, ok)

	got, from := Recv(child, parent)
	assert.Same(t, parent, from)
	assert.Equal(t, "payload", got.GetStr())
}

func TestSendToInactiveContextFails(t *testing.T) {
	parent := Init(64, 1<<16, nil)
	child := Init(64, 1<<16, nil)
	Terminate(child)

	ok := Send(parent, child, MkImmediate(1))
	assert.False(t, ok)
}

func TestDeepCopySharesNoStorage(t *testing.T) {
	parent := Init(64, 1<<16, nil)
	child := Init(64, 1<<16, nil)
	child.processes = 1

	s := "shared?"
	original := MkString(parent, &s)
	Send(parent, child, original)
	received, _ := Recv(child, parent)

	// Mutate the copy's backing cell directly and confirm the sender's
	// original is untouched — §8 property 7, no shared mutable storage
	// survives a send.
	received.Cell().str = "mutated"
	assert.Equal(t, "shared?", original.GetStr())
}

func TestRecvFiltersBySender(t *testing.T) {
	receiver := Init(64, 1<<16, nil)
	senderA := Init(64, 1<<16, nil)
	senderB := Init(64, 1<<16, nil)

	Send(senderA, receiver, MkImmediate(1))
	Send(senderB, receiver, MkImmediate(2))

	v, from := Recv(receiver, senderB)
	assert.Same(t, senderB, from)
	assert.Equal(t, 2, v.Int())

	v, from = Recv(receiver, senderA)
	assert.Same(t, senderA, from)
	assert.Equal(t, 1, v.Int())
}

func TestPeekTimeoutObservesSenderWithoutConsuming(t *testing.T) {
	receiver := Init(64, 1<<16, nil)
	sender := Init(64, 1<<16, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		Send(sender, receiver, MkImmediate(7))
	}()

	from, ok := PeekTimeout(receiver, 200*time.Millisecond)
	require.True(t, ok)
	assert.Same(t, sender, from)

	// The message is still there for a real Recv.
	v, _ := Recv(receiver, sender)
	assert.Equal(t, 7, v.Int())
}

func TestSpawnRunsChildAndDeepCopiesArg(t *testing.T) {
	parent := Init(64, 1<<16, nil)
	s := "spawned-arg"
	arg := MkString(parent, &s)

	done := make(chan string, 1)
	child := Spawn(parent, func(c *Context) {
		v := c.StackSlot(0)
		done <- v.GetStr()
	}, arg)

	select {
	case got := <-done:
		assert.Equal(t, "spawned-arg", got)
	case <-time.After(2 * time.Second):
		t.Fatal("spawned context never ran")
	}
	_ = child
}
