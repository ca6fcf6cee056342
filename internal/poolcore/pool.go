// Package poolcore owns the browser-session pool: idle/active/waiting
// accounting, a FIFO wait queue, a dispatcher worker, an idle-eviction
// ticker, pre-warm and graceful shutdown. It is the concurrency-heavy
// center of this module; everything above it (the conversion facade, the
// shared singleton) is a thin caller of Acquire/Release/Shutdown.
package poolcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/pdferr"
	"github.com/html2pdf/pool/internal/pdflog"
)

// preWarmTimeout bounds each pre-warm launch attempt.
const preWarmTimeout = 30 * time.Second

// ensureMinPause separates successive serial launches inside EnsureMin.
const ensureMinPause = 1 * time.Second

// defaultEnsureMinMaxAttempts is used when Config.EnsureMinMaxAttempts is
// left zero.
const defaultEnsureMinMaxAttempts = 3

// dispatcherPollInterval is how often the dispatcher worker re-checks the
// wait queue for progress.
const dispatcherPollInterval = 100 * time.Millisecond

// workerJoinGrace bounds how long Shutdown waits for the dispatcher and
// eviction goroutines before moving on regardless.
const workerJoinGrace = 5 * time.Second

type idleEntry struct {
	session  *Session
	lastUsed time.Time
}

type waitTicket struct {
	result chan acquireResult
}

type acquireResult struct {
	session *Session
	err     error
}

// Pool is a bounded set of browser Sessions shared by concurrent callers.
type Pool struct {
	cfg    Config
	logger arbor.ILogger

	total  int32
	active int32

	idleMu sync.Mutex
	idle   []idleEntry

	waitMu sync.Mutex
	wait   []*waitTicket
	waitN  int32

	shutdownFlag int32
	shutdownOnce sync.Once

	// min is the live pre-warm/eviction floor. It starts at cfg.Min but can
	// be raised after construction via SetTargetMin (the Shared Pool
	// Singleton constructs with Min forced to zero, then raises it once a
	// background EnsureMin call is ready to run).
	min int32

	stopCh chan struct{}
	doneWG sync.WaitGroup
}

// New builds a Pool, pre-warming up to cfg.Min sessions synchronously
// (best-effort: failures are logged and skipped, never fatal), and starts
// the dispatcher and idle-eviction background workers.
func New(cfg Config) *Pool {
	p := &Pool{
		cfg:    cfg,
		logger: pdflog.OrDefault(cfg.Logger),
		stopCh: make(chan struct{}),
	}
	atomic.StoreInt32(&p.min, int32(cfg.Min))

	p.preWarm()

	p.doneWG.Add(2)
	go p.dispatchLoop()
	go p.evictLoop()

	return p
}

// launch dispatches to cfg.Launch when the caller supplied one (tests),
// otherwise to the real launcher+CDP dial sequence.
func (p *Pool) launch(ctx context.Context, port int) (*Session, error) {
	if p.cfg.Launch != nil {
		return p.cfg.Launch(ctx, port)
	}
	return launchSession(ctx, p.cfg.BrowserPath, port, p.logger, p.cfg.Metrics)
}

func (p *Pool) isShutdown() bool {
	return atomic.LoadInt32(&p.shutdownFlag) == 1
}

func (p *Pool) reportGauges() {
	p.idleMu.Lock()
	idleN := len(p.idle)
	p.idleMu.Unlock()
	p.cfg.Metrics.SetPoolSessions(idleN, int(atomic.LoadInt32(&p.active)), int(atomic.LoadInt32(&p.waitN)), int(atomic.LoadInt32(&p.total)))
}

// preWarm creates up to cfg.Min idle sessions at construction time. Each
// attempt is capped by preWarmTimeout; a failed attempt is logged and
// skipped rather than aborting the rest of the pool.
func (p *Pool) preWarm() {
	for i := 0; i < int(atomic.LoadInt32(&p.min)); i++ {
		ctx, cancel := context.WithTimeout(context.Background(), preWarmTimeout)
		port := p.cfg.BasePort + i
		sess, err := p.launch(ctx, port)
		cancel()
		if err != nil {
			p.logger.Warn().Err(err).Int("port", port).Msg("pre-warm launch failed, skipping")
			continue
		}
		atomic.AddInt32(&p.total, 1)
		p.idleMu.Lock()
		p.idle = append(p.idle, idleEntry{session: sess, lastUsed: time.Now()})
		p.idleMu.Unlock()
	}
	p.reportGauges()
}

// SetTargetMin raises (or lowers) the pre-warm/eviction floor after
// construction. The Shared Pool Singleton uses this to apply the
// configured minimum once it is ready to run EnsureMin in the background,
// since New itself is always called with Min forced to zero.
func (p *Pool) SetTargetMin(min int) {
	atomic.StoreInt32(&p.min, int32(min))
}

// EnsureMin is a best-effort background catch-up for pools constructed
// with a forced-zero pre-warm (the Shared Pool Singleton does this to
// avoid blocking the caller that lazily constructs it). It launches
// sessions serially, one ensureMinPause apart, through the same
// CAS-and-bound-by-cfg.Max reservation growAndLaunch uses for ordinary
// growth, so it can never race a concurrent Acquire onto the same port or
// push total above cfg.Max. It stops as soon as total reaches the current
// floor (p.min, as set by New or SetTargetMin),
// shutdown begins, ctx is cancelled, the pool is already at cfg.Max, or
// cfg.EnsureMinMaxAttempts consecutive launches fail.
func (p *Pool) EnsureMin(ctx context.Context) {
	maxAttempts := p.cfg.EnsureMinMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultEnsureMinMaxAttempts
	}

	failures := 0
	for int(atomic.LoadInt32(&p.total)) < int(atomic.LoadInt32(&p.min)) {
		if p.isShutdown() {
			return
		}
		launchCtx, cancel := context.WithTimeout(ctx, preWarmTimeout)
		sess, err := p.growAndLaunch(launchCtx)
		cancel()

		switch {
		case err != nil:
			failures++
			p.logger.Warn().Err(err).Int("attempt", failures).Int("max_attempts", maxAttempts).Msg("ensure_min launch failed")
			if failures >= maxAttempts {
				p.logger.Warn().Int("attempts", failures).Msg("ensure_min giving up after exhausting retries")
				return
			}
		case sess == nil:
			// growAndLaunch found total already at cfg.Max; min is
			// unreachable at current capacity.
			p.logger.Warn().Int("max", p.cfg.Max).Msg("ensure_min: pool already at max capacity, stopping")
			return
		default:
			failures = 0
			p.idleMu.Lock()
			p.idle = append(p.idle, idleEntry{session: sess, lastUsed: time.Now()})
			p.idleMu.Unlock()
			p.reportGauges()
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-time.After(ensureMinPause):
		}
	}
}

// popIdle removes and returns the oldest idle entry, if any.
func (p *Pool) popIdle() (*Session, bool) {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	if len(p.idle) == 0 {
		return nil, false
	}
	e := p.idle[0]
	p.idle = p.idle[1:]
	return e.session, true
}

// growAndLaunch attempts to atomically reserve one more pool slot (bounded
// by cfg.Max) and launch the corresponding Session. On launch failure the
// reservation is undone and the error is returned.
func (p *Pool) growAndLaunch(ctx context.Context) (*Session, error) {
	for {
		cur := atomic.LoadInt32(&p.total)
		if int(cur) >= p.cfg.Max {
			return nil, nil
		}
		if !atomic.CompareAndSwapInt32(&p.total, cur, cur+1) {
			continue
		}
		port := p.cfg.BasePort + int(cur)
		sess, err := p.launch(ctx, port)
		if err != nil {
			atomic.AddInt32(&p.total, -1)
			return nil, err
		}
		return sess, nil
	}
}

// tryAcquireNow attempts the fast idle-pop path, then the growth path. A
// growth-path launch failure is logged and treated the same as "pool at
// max capacity" — the caller falls through to the slow (wait-queue) path
// rather than failing outright, per the undo-and-retry rule.
func (p *Pool) tryAcquireNow(ctx context.Context) (*Session, bool) {
	if sess, ok := p.popIdle(); ok {
		return sess, true
	}
	sess, err := p.growAndLaunch(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("growth-path launch failed, falling back to wait queue")
		return nil, false
	}
	if sess != nil {
		return sess, true
	}
	return nil, false
}

// Acquire returns a Session, growing the pool or waiting for one to be
// released as needed. It fails immediately if the pool has begun shutting
// down, and fails with ErrAcquireTimeout if cfg.AcquireTimeout elapses
// first.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	start := time.Now()
	if p.isShutdown() {
		p.cfg.Metrics.ObserveAcquire(time.Since(start).Seconds(), "pool_closed")
		return nil, fmt.Errorf("poolcore: acquire: %w", pdferr.ErrPoolClosed)
	}

	if sess, ok := p.tryAcquireNow(ctx); ok {
		atomic.AddInt32(&p.active, 1)
		p.reportGauges()
		p.cfg.Metrics.ObserveAcquire(time.Since(start).Seconds(), "success")
		return sess, nil
	}

	ticket := &waitTicket{result: make(chan acquireResult, 1)}
	p.waitMu.Lock()
	p.wait = append(p.wait, ticket)
	p.waitMu.Unlock()
	atomic.AddInt32(&p.waitN, 1)
	p.reportGauges()

	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case res := <-ticket.result:
		p.cfg.Metrics.ObserveAcquire(time.Since(start).Seconds(), outcomeOf(res.err))
		return res.session, res.err
	case <-timer.C:
		p.removeTicket(ticket)
		atomic.AddInt32(&p.waitN, -1)
		p.reportGauges()
		p.cfg.Metrics.ObserveAcquire(time.Since(start).Seconds(), "timeout")
		return nil, fmt.Errorf("poolcore: acquire: %w", pdferr.ErrAcquireTimeout)
	case <-ctx.Done():
		p.removeTicket(ticket)
		atomic.AddInt32(&p.waitN, -1)
		p.reportGauges()
		p.cfg.Metrics.ObserveAcquire(time.Since(start).Seconds(), "timeout")
		return nil, fmt.Errorf("poolcore: acquire: %w", ctx.Err())
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, pdferr.ErrPoolClosed):
		return "pool_closed"
	default:
		return "error"
	}
}

func (p *Pool) removeTicket(t *waitTicket) {
	p.waitMu.Lock()
	defer p.waitMu.Unlock()
	for i, cur := range p.wait {
		if cur == t {
			p.wait = append(p.wait[:i], p.wait[i+1:]...)
			return
		}
	}
}

// popWaitTicket removes and returns the head of the wait queue, if any.
func (p *Pool) popWaitTicket() (*waitTicket, bool) {
	p.waitMu.Lock()
	defer p.waitMu.Unlock()
	if len(p.wait) == 0 {
		return nil, false
	}
	t := p.wait[0]
	p.wait = p.wait[1:]
	return t, true
}

// Release returns a Session to the pool. If a waiter is queued, the
// Session is handed directly to it (no idle round-trip); otherwise it is
// pushed onto the idle set. If the pool has begun shutting down, the
// Session is destroyed synchronously instead.
func (p *Pool) Release(session *Session) {
	if p.isShutdown() {
		atomic.AddInt32(&p.active, -1)
		atomic.AddInt32(&p.total, -1)
		if err := session.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("closing session during shutdown release")
		}
		p.reportGauges()
		return
	}

	atomic.AddInt32(&p.active, -1)

	if ticket, ok := p.popWaitTicket(); ok {
		atomic.AddInt32(&p.waitN, -1)
		atomic.AddInt32(&p.active, 1)
		p.reportGauges()
		ticket.result <- acquireResult{session: session}
		return
	}

	p.idleMu.Lock()
	p.idle = append(p.idle, idleEntry{session: session, lastUsed: time.Now()})
	p.idleMu.Unlock()
	p.reportGauges()
}

// Shutdown is idempotent. It stops the dispatcher and eviction workers,
// fails every queued waiter with ErrPoolClosed, and closes every idle
// Session. Sessions checked out at the time of the call are closed when
// their caller releases them (Release observes the shutdown flag).
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		atomic.StoreInt32(&p.shutdownFlag, 1)
		close(p.stopCh)

		joined := make(chan struct{})
		go func() {
			p.doneWG.Wait()
			close(joined)
		}()
		select {
		case <-joined:
		case <-time.After(workerJoinGrace):
			p.logger.Warn().Msg("pool workers did not join within grace period")
		}

		p.waitMu.Lock()
		pending := p.wait
		p.wait = nil
		p.waitMu.Unlock()
		for _, t := range pending {
			t.result <- acquireResult{err: fmt.Errorf("poolcore: %w", pdferr.ErrPoolClosed)}
			atomic.AddInt32(&p.waitN, -1)
		}

		p.idleMu.Lock()
		idle := p.idle
		p.idle = nil
		p.idleMu.Unlock()
		for _, e := range idle {
			if err := e.session.Close(); err != nil {
				p.logger.Warn().Err(err).Msg("closing idle session during shutdown")
			}
			atomic.AddInt32(&p.total, -1)
		}

		p.reportGauges()
	})
}
