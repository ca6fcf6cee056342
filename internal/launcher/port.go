package launcher

import (
	"fmt"
	"net"

	"github.com/html2pdf/pool/internal/pdferr"
)

// maxPortProbe bounds the requested+1..requested+100 fallback range probed
// when the requested port is unavailable.
const maxPortProbe = 100

// allocatePort attempts to bind requested, release it, and return it;
// failing that, it probes requested+1 through requested+maxPortProbe and
// returns the first port that binds. The bind-release-spawn sequence is
// inherently TOCTOU (another process may grab the port before the browser
// binds its debugger to it); the launcher compensates by also recognizing
// a bind error reported in the child's own startup log (see launcher.go).
func allocatePort(requested int) (int, error) {
	if tryBind(requested) {
		return requested, nil
	}
	for p := requested + 1; p <= requested+maxPortProbe; p++ {
		if tryBind(p) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("launcher: no free port in [%d, %d]: %w", requested, requested+maxPortProbe, pdferr.ErrPortUnavailable)
}

func tryBind(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
