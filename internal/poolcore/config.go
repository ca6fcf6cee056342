package poolcore

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/metrics"
)

// Config parameterizes a Pool. BrowserPath, BasePort, Min and Max are
// required. A nil Logger becomes pdflog.Default's console logger; a nil
// Metrics records nothing. Launch defaults to the real launcher+CDP dial sequence; tests
// substitute a fake to exercise pool accounting without a real browser.
type Config struct {
	BrowserPath    string
	BasePort       int
	Min            int
	Max            int
	IdleTimeout    time.Duration
	AcquireTimeout time.Duration
	Logger         arbor.ILogger
	Metrics        *metrics.Registry
	Launch         func(ctx context.Context, port int) (*Session, error)

	// EnsureMinMaxAttempts bounds the consecutive launch failures EnsureMin
	// tolerates before giving up and warn-logging. Defaults to 3 when zero.
	EnsureMinMaxAttempts int
}
