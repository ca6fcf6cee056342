package locator_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/html2pdf/pool/internal/locator"
	"github.com/html2pdf/pool/internal/pdferr"
)

func TestResolve_ExplicitOverride(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake-chrome")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755))

	path, err := locator.Resolve(fake, nil)
	require.NoError(t, err)
	assert.Equal(t, fake, path)
}

func TestResolve_ExplicitOverrideMissing_NoFallback(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")

	_, err := locator.Resolve(missing, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferr.ErrBrowserNotFound))
}
