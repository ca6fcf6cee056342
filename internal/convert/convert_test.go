package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdfopts"
)

type fakeSession struct {
	navigateURL string
	navigateErr error
	pdfBytes    []byte
	pdfErr      error
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigateURL = url
	return f.navigateErr
}

func (f *fakeSession) PrintToPDF(ctx context.Context, opts pdfopts.Options) ([]byte, error) {
	return f.pdfBytes, f.pdfErr
}

type fakePool struct {
	session   *fakeSession
	acquireErr error
	released  int
}

func (f *fakePool) Acquire(ctx context.Context) (session, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.session, nil
}

func (f *fakePool) Release(session) {
	f.released++
}

func TestConvert_RoundTripSignature(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "input.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html><body>X</body></html>"), 0o644))

	pdfBytes := append([]byte("%PDF-1.7 "), []byte("rest of fake document")...)
	p := &fakePool{session: &fakeSession{pdfBytes: pdfBytes}}

	out, err := Convert(context.Background(), p, Input{FilePath: htmlPath}, pdfopts.Default(), metrics.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, out)
	assert.Equal(t, []byte("%PDF"), out[:4])
	assert.Equal(t, 1, p.released, "session must be released exactly once")
}

func TestConvert_MaterializesInMemoryHTML(t *testing.T) {
	p := &fakePool{session: &fakeSession{pdfBytes: []byte("%PDF-fake")}}

	_, err := Convert(context.Background(), p, Input{HTML: "<html></html>"}, pdfopts.Default(), metrics.New(), nil)
	require.NoError(t, err)
	assert.Contains(t, p.session.navigateURL, "file://")
	assert.Equal(t, 1, p.released)
}

func TestConvert_ReleasesOnNavigateFailure(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "input.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html></html>"), 0o644))

	navErr := errors.New("boom")
	p := &fakePool{session: &fakeSession{navigateErr: navErr}}

	_, err := Convert(context.Background(), p, Input{FilePath: htmlPath}, pdfopts.Default(), metrics.New(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, p.released, "session must be released even when navigate fails")
}

func TestConvert_MissingFileFailsBeforeAcquire(t *testing.T) {
	p := &fakePool{session: &fakeSession{}}

	_, err := Convert(context.Background(), p, Input{FilePath: "/nonexistent/path.html"}, pdfopts.Default(), metrics.New(), nil)
	require.Error(t, err)
	assert.Equal(t, 0, p.released)
}

func TestConvertToFile_WritesPDFBytes(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "input.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html></html>"), 0o644))
	outPath := filepath.Join(dir, "nested", "output.pdf")

	pdfBytes := []byte("%PDF-1.7 content")
	p := &fakePool{session: &fakeSession{pdfBytes: pdfBytes}}

	err := ConvertToFile(context.Background(), p, Input{FilePath: htmlPath}, outPath, pdfopts.Default(), metrics.New(), nil)
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)
}
