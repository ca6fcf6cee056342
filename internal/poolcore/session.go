package poolcore

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/cdp"
	"github.com/html2pdf/pool/internal/launcher"
	"github.com/html2pdf/pool/internal/metrics"
)

// Session is one pool-owned browser subprocess plus its CDP connection to
// one page. It satisfies both the launch side (Close tears down the
// process) and the CDP side (embedded *cdp.Session exposes Navigate and
// PrintToPDF to callers).
type Session struct {
	*cdp.Session
	proc    *launcher.Process
	port    int
	closeFn func() error // overridden by tests in place of a real cdp.Session/Process pair
}

// Port returns the debugging port this Session's browser is listening on.
func (s *Session) Port() int { return s.port }

// Close tears down the CDP connection first, then the subprocess.
func (s *Session) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	cdpErr := s.Session.Close()
	procErr := s.proc.Close()
	if cdpErr != nil {
		return cdpErr
	}
	return procErr
}

// launchSession runs the full launcher → CDP dial → Page.enable sequence
// for one new pool slot at the given port.
func launchSession(ctx context.Context, browserPath string, port int, logger arbor.ILogger, reg *metrics.Registry) (*Session, error) {
	proc, wsURL, err := launcher.Launch(ctx, browserPath, port, logger, reg)
	if err != nil {
		return nil, err
	}

	cdpSession, err := cdp.New(ctx, wsURL, logger, reg)
	if err != nil {
		_ = proc.Close()
		return nil, err
	}

	if err := cdpSession.EnablePage(ctx); err != nil {
		_ = cdpSession.Close()
		_ = proc.Close()
		return nil, err
	}

	return &Session{Session: cdpSession, proc: proc, port: proc.Port()}, nil
}
