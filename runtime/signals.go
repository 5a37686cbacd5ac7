package runtime

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// IgnoreSIGPIPE ignores SIGPIPE for the process, the POSIX-platform
// signal policy §6 mandates (`init_signals`, idris_rts.c:115-119). A
// compiled program writing to a closed pipe gets an EPIPE error return
// instead of being killed.
func IgnoreSIGPIPE() {
	signal.Ignore(unix.SIGPIPE)
}
