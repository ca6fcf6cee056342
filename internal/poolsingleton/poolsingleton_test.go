package poolsingleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/html2pdf/pool/internal/config"
)

// Package-level singleton state means these tests share one process-wide
// pool; they only assert properties that hold regardless of call order.

func TestGet_ReturnsSamePointer(t *testing.T) {
	a := Get()
	b := Get()
	assert.Same(t, a, b)
	t.Cleanup(Shutdown)
}

func TestConfigure_RejectedAfterGet(t *testing.T) {
	Get()
	err := Configure(config.Defaults())
	require.ErrorIs(t, err, ErrAlreadyConfigured)
	t.Cleanup(Shutdown)
}

func TestMetrics_ReturnsNonNilRegistry(t *testing.T) {
	reg := Metrics()
	require.NotNil(t, reg)
	assert.NotNil(t, reg.Gatherer())
	t.Cleanup(Shutdown)
}
