// Package poolsingleton exposes one process-wide, lazily constructed
// poolcore.Pool so every caller shares exactly one pool behind an atomic
// pointer instead of threading one through call sites explicitly.
package poolsingleton

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/html2pdf/pool/internal/config"
	"github.com/html2pdf/pool/internal/locator"
	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdflog"
	"github.com/html2pdf/pool/internal/poolcore"
)

var (
	instance   atomic.Pointer[poolcore.Pool]
	buildOnce  sync.Once
	configured int32

	mu       sync.Mutex
	appCfg   config.AppConfig
	hasAppCfg bool

	metricsReg atomic.Pointer[metrics.Registry]
)

// ErrAlreadyConfigured is returned by Configure once the singleton has
// already been read at least once; the frozen-configuration rule means a
// later Configure call can no longer influence the live pool.
var ErrAlreadyConfigured = errors.New("poolsingleton: configuration already frozen")

// Configure sets the AppConfig used the first time Get constructs the
// pool. It must be called before the first Get; afterward the
// configuration is frozen and Configure returns ErrAlreadyConfigured.
func Configure(cfg config.AppConfig) error {
	mu.Lock()
	defer mu.Unlock()
	if atomic.LoadInt32(&configured) == 1 {
		return ErrAlreadyConfigured
	}
	appCfg = cfg
	hasAppCfg = true
	return nil
}

// Get returns the process-wide pool, constructing it on first call with
// whatever AppConfig was last set via Configure (or hard-coded defaults
// if Configure was never called). Construction pre-warms zero sessions
// synchronously so the first caller never blocks on browser launches; a
// background goroutine then calls EnsureMin to reach the configured
// minimum.
func Get() *poolcore.Pool {
	if p := instance.Load(); p != nil {
		return p
	}

	buildOnce.Do(func() {
		mu.Lock()
		cfg := appCfg
		if !hasAppCfg {
			cfg = config.Defaults()
		}
		atomic.StoreInt32(&configured, 1)
		mu.Unlock()

		reg := metrics.New()
		logger := pdflog.FromLevel(cfg.Log.Level)

		browserPath := cfg.ChromePath
		if browserPath == "" {
			if resolved, err := locator.Resolve("", logger); err == nil {
				browserPath = resolved
			} else {
				logger.Warn().Err(err).Msg("browser auto-discovery failed")
			}
		}

		p := poolcore.New(poolcore.Config{
			BrowserPath:    browserPath,
			BasePort:       cfg.Pool.BasePort,
			Min:            0, // forced to zero for synchronous construction
			Max:            cfg.Pool.MaxConnections,
			IdleTimeout:    cfg.Pool.IdleTimeout,
			AcquireTimeout: cfg.Pool.AcquireTimeout,
			Logger:         logger,
			Metrics:        reg,
		})
		instance.Store(p)
		metricsReg.Store(reg)

		if cfg.Pool.MinConnections > 0 {
			go ensureMinWithRealMin(p, cfg.Pool.MinConnections)
		}

		installShutdownHook(p)
	})

	return instance.Load()
}

// ensureMinWithRealMin re-runs the pre-warm target at the configured
// minimum, since Get always constructs with Min forced to zero.
func ensureMinWithRealMin(p *poolcore.Pool, min int) {
	p.SetTargetMin(min)
	p.EnsureMin(context.Background())
}

var hookOnce sync.Once

// installShutdownHook registers a SIGINT/SIGTERM handler that shuts the
// pool down if the process is asked to exit and the caller never called
// Shutdown explicitly.
func installShutdownHook(p *poolcore.Pool) {
	hookOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-ch
			p.Shutdown()
		}()
	})
}

// Shutdown shuts the process-wide pool down, if one was ever constructed.
// Safe to call even if Get was never called.
func Shutdown() {
	if p := instance.Load(); p != nil {
		p.Shutdown()
	}
}

// Metrics returns the registry backing the process-wide pool, constructing
// the pool via Get if it does not exist yet.
func Metrics() *metrics.Registry {
	Get()
	return metricsReg.Load()
}
