package poolcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdferr"
)

// fakeLaunch builds a Config.Launch that hands out lightweight fake
// Sessions, counting live (unclosed) instances so tests can assert on
// pool occupancy without spawning a real browser.
func fakeLaunch() (launch func(ctx context.Context, port int) (*Session, error), live *int32) {
	live = new(int32)
	launch = func(ctx context.Context, port int) (*Session, error) {
		atomic.AddInt32(live, 1)
		var once sync.Once
		return &Session{
			port: port,
			closeFn: func() error {
				once.Do(func() { atomic.AddInt32(live, -1) })
				return nil
			},
		}, nil
	}
	return launch, live
}

func newTestPool(t *testing.T, min, max int, idleTimeout, acquireTimeout time.Duration) (*Pool, *int32) {
	t.Helper()
	launch, live := fakeLaunch()
	p := New(Config{
		BrowserPath:    "fake",
		BasePort:       9300,
		Min:            min,
		Max:            max,
		IdleTimeout:    idleTimeout,
		AcquireTimeout: acquireTimeout,
		Metrics:        metrics.New(),
		Launch:         launch,
	})
	t.Cleanup(p.Shutdown)
	return p, live
}

func TestPool_AcquireRelease_RoundTrip(t *testing.T) {
	p, live := newTestPool(t, 0, 2, time.Minute, time.Second)

	sess, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(live))

	p.Release(sess)
	assert.EqualValues(t, 1, atomic.LoadInt32(live), "session stays alive, parked idle")
}

func TestPool_NeverExceedsMax(t *testing.T) {
	p, _ := newTestPool(t, 0, 2, time.Minute, 200*time.Millisecond)

	s1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferr.ErrAcquireTimeout))

	p.Release(s1)
	p.Release(s2)
}

func TestPool_QueueFairness(t *testing.T) {
	p, _ := newTestPool(t, 0, 2, time.Minute, 5*time.Second)

	a, err := p.Acquire(context.Background())
	require.NoError(t, err)
	b, err := p.Acquire(context.Background())
	require.NoError(t, err)

	order := make(chan string, 2)
	go func() {
		if _, err := p.Acquire(context.Background()); err == nil {
			order <- "C"
		}
	}()
	time.Sleep(50 * time.Millisecond) // ensure C enqueues before D
	go func() {
		if _, err := p.Acquire(context.Background()); err == nil {
			order <- "D"
		}
	}()
	time.Sleep(50 * time.Millisecond)

	p.Release(a)

	first := <-order
	assert.Equal(t, "C", first, "the earlier waiter must be served first")

	p.Release(b)
	second := <-order
	assert.Equal(t, "D", second)
}

func TestPool_AcquireTimeout(t *testing.T) {
	p, _ := newTestPool(t, 0, 1, time.Minute, 300*time.Millisecond)

	sess, err := p.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferr.ErrAcquireTimeout))
	assert.InDelta(t, 300*time.Millisecond, elapsed, float64(200*time.Millisecond))
	assert.EqualValues(t, 0, atomic.LoadInt32(&p.waitN))

	p.Release(sess)
}

func TestPool_IdleEviction(t *testing.T) {
	p, live := newTestPool(t, 1, 3, 200*time.Millisecond, time.Second)

	sessions := make([]*Session, 0, 3)
	for i := 0; i < 3; i++ {
		s, err := p.Acquire(context.Background())
		require.NoError(t, err)
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		p.Release(s)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(live))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(live) == 1
	}, 3*time.Second, 50*time.Millisecond, "idle sessions above min should be evicted")
	assert.EqualValues(t, 1, atomic.LoadInt32(&p.total))
}

func TestPool_ShutdownDuringWait(t *testing.T) {
	p, _ := newTestPool(t, 0, 1, time.Minute, 5*time.Second)

	sess, err := p.Acquire(context.Background())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)

	p.Shutdown()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, errors.Is(err, pdferr.ErrPoolClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("waiting acquire did not fail after shutdown")
	}

	_, err = p.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferr.ErrPoolClosed))

	p.Release(sess) // must not panic even though shutdown has begun
}

func TestPool_ShutdownIsIdempotent(t *testing.T) {
	p, _ := newTestPool(t, 0, 1, time.Minute, time.Second)
	p.Shutdown()
	p.Shutdown()
	p.Shutdown()
}

// TestPool_EnsureMin_BoundedRetries exercises a pool whose launcher always
// fails: EnsureMin must stop after EnsureMinMaxAttempts consecutive
// failures rather than retrying forever.
func TestPool_EnsureMin_BoundedRetries(t *testing.T) {
	var attempts int32
	failLaunch := func(ctx context.Context, port int) (*Session, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("browser failed to start")
	}

	p := New(Config{
		BrowserPath:          "fake",
		BasePort:             9400,
		Min:                  0,
		Max:                  5,
		IdleTimeout:          time.Minute,
		AcquireTimeout:       time.Second,
		Metrics:              metrics.New(),
		Launch:               failLaunch,
		EnsureMinMaxAttempts: 3,
	})
	t.Cleanup(p.Shutdown)
	p.SetTargetMin(2)

	done := make(chan struct{})
	go func() {
		p.EnsureMin(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureMin did not return after exhausting its attempt budget")
	}

	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	assert.EqualValues(t, 0, atomic.LoadInt32(&p.total))
}

// TestPool_EnsureMin_CoordinatesWithConcurrentAcquire runs EnsureMin's
// background catch-up alongside foreground Acquire-driven growth and
// asserts the two never hand out the same port and never push total past
// cfg.Max, confirming EnsureMin now reserves slots through the same
// CAS-and-bound-by-Max path growAndLaunch uses for ordinary growth.
func TestPool_EnsureMin_CoordinatesWithConcurrentAcquire(t *testing.T) {
	var mu sync.Mutex
	var duplicates int32
	seenPorts := make(map[int]bool)
	launch := func(ctx context.Context, port int) (*Session, error) {
		mu.Lock()
		if seenPorts[port] {
			mu.Unlock()
			atomic.AddInt32(&duplicates, 1)
			return nil, fmt.Errorf("duplicate port %d", port)
		}
		seenPorts[port] = true
		mu.Unlock()
		var once sync.Once
		return &Session{
			port:    port,
			closeFn: func() error { once.Do(func() {}); return nil },
		}, nil
	}

	p := New(Config{
		BrowserPath:    "fake",
		BasePort:       9500,
		Min:            0,
		Max:            4,
		IdleTimeout:    time.Minute,
		AcquireTimeout: 2 * time.Second,
		Metrics:        metrics.New(),
		Launch:         launch,
	})
	t.Cleanup(p.Shutdown)
	p.SetTargetMin(4)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.EnsureMin(context.Background())
	}()

	var sMu sync.Mutex
	sessions := make([]*Session, 0, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sess, err := p.Acquire(context.Background()); err == nil {
				sMu.Lock()
				sessions = append(sessions, sess)
				sMu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(atomic.LoadInt32(&p.total)), 4, "total must never exceed Max")
	assert.EqualValues(t, 0, atomic.LoadInt32(&duplicates), "no port may be handed out twice")

	for _, s := range sessions {
		p.Release(s)
	}
}
