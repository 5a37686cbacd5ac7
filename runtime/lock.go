package runtime

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the calling goroutine's id from its own stack
// trace header ("goroutine 123 [running]:"). It backs reentrantMutex,
// which needs to recognise when the current goroutine is the one
// already holding the lock. Go has no public goroutine-local storage;
// this is the standard workaround, and it is only ever used to decide
// whether to skip a redundant Lock, never for correctness-critical
// identity beyond that.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}

// reentrantMutex is the destination-heap allocation lock described in
// spec §4.B/§5: it must be safely nestable (require -> allocate is a
// legitimate nesting) while still serialising genuinely concurrent
// callers, e.g. a sender copying a message into this heap while the
// heap's own owning goroutine is separately allocating.
type reentrantMutex struct {
	mu    sync.Mutex
	owner uint64
	depth int
}

func (l *reentrantMutex) Lock() {
	gid := goroutineID()
	if l.depth > 0 && l.owner == gid {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner = gid
	l.depth = 1
}

func (l *reentrantMutex) Unlock() {
	l.depth--
	if l.depth == 0 {
		l.owner = 0
		l.mu.Unlock()
	}
}
