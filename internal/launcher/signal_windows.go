//go:build windows

package launcher

import "os"

// terminateSignal on Windows: os.Interrupt isn't well supported for child
// processes, so Close sends os.Kill straight away; there is no graceful
// phase, and Close returns as soon as the killed process has been reaped.
func terminateSignal() os.Signal {
	return os.Kill
}
