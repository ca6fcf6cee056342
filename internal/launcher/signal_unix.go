//go:build !windows

package launcher

import (
	"os"
	"syscall"
)

// terminateSignal is the signal Close sends for graceful shutdown before
// escalating to Kill.
func terminateSignal() os.Signal {
	return syscall.SIGTERM
}
