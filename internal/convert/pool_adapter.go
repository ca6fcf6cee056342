package convert

import (
	"context"

	"github.com/html2pdf/pool/internal/pdfopts"
	"github.com/html2pdf/pool/internal/poolcore"
)

// session is the minimal surface Convert needs from a checked-out pool
// session. *poolcore.Session satisfies it directly; tests substitute a
// fake without dialing a real browser.
type session interface {
	Navigate(ctx context.Context, url string) error
	PrintToPDF(ctx context.Context, opts pdfopts.Options) ([]byte, error)
}

// pool is the minimal surface Convert needs from a session source.
type pool interface {
	Acquire(ctx context.Context) (session, error)
	Release(session)
}

// PoolAdapter wraps a *poolcore.Pool so it satisfies this package's pool
// interface; *poolcore.Session already satisfies session structurally.
type PoolAdapter struct {
	Pool *poolcore.Pool
}

func (a PoolAdapter) Acquire(ctx context.Context) (session, error) {
	sess, err := a.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (a PoolAdapter) Release(s session) {
	ps, ok := s.(*poolcore.Session)
	if !ok {
		return
	}
	a.Pool.Release(ps)
}
