// Package convert is the stateless conversion coordinator: validate or
// materialize an HTML input, acquire a pool session, navigate and print,
// release the session on every exit path, and return or write the PDF
// bytes.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdflog"
	"github.com/html2pdf/pool/internal/pdfopts"
)

// tempFilePattern names temp files materialized from in-memory HTML
// content: a stable prefix/suffix pair so they are easy to recognize and
// clean up if a process dies before its deferred cleanup runs.
const tempFilePattern = "html2pdf-*.html"

// Input selects an HTML source. Exactly one of FilePath or HTML should be
// set; FilePath takes precedence if both are.
type Input struct {
	FilePath string
	HTML     string
}

func (in Input) materialize() (path string, cleanup func(), err error) {
	if in.FilePath != "" {
		if _, err := os.Stat(in.FilePath); err != nil {
			return "", nil, fmt.Errorf("convert: html input %s: %w", in.FilePath, err)
		}
		abs, err := filepath.Abs(in.FilePath)
		if err != nil {
			return "", nil, fmt.Errorf("convert: html input %s: %w", in.FilePath, err)
		}
		return abs, func() {}, nil
	}

	f, err := os.CreateTemp("", tempFilePattern)
	if err != nil {
		return "", nil, fmt.Errorf("convert: create temp html file: %w", err)
	}
	if _, err := f.WriteString(in.HTML); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("convert: write temp html file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("convert: close temp html file: %w", err)
	}

	abs, err := filepath.Abs(f.Name())
	if err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("convert: html input: %w", err)
	}
	return abs, func() { os.Remove(f.Name()) }, nil
}

// Convert navigates a pool session to input and returns the generated PDF
// bytes. The checked-out session is always released, and any temp file
// created for in-memory HTML content is always removed.
func Convert(ctx context.Context, p pool, input Input, opts pdfopts.Options, reg *metrics.Registry, logger arbor.ILogger) ([]byte, error) {
	logger = pdflog.OrDefault(logger)
	requestID := uuid.New().String()
	start := time.Now()

	absPath, cleanup, err := input.materialize()
	if err != nil {
		reg.ObserveConversion(time.Since(start).Seconds(), "failure")
		return nil, err
	}
	defer cleanup()

	url := fileURL(absPath)

	sess, err := p.Acquire(ctx)
	if err != nil {
		reg.ObserveConversion(time.Since(start).Seconds(), "failure")
		return nil, fmt.Errorf("convert: acquire session: %w", err)
	}
	defer p.Release(sess)

	if err := sess.Navigate(ctx, url); err != nil {
		reg.ObserveConversion(time.Since(start).Seconds(), "failure")
		return nil, fmt.Errorf("convert: navigate %s: %w", url, err)
	}

	data, err := sess.PrintToPDF(ctx, opts)
	if err != nil {
		reg.ObserveConversion(time.Since(start).Seconds(), "failure")
		return nil, fmt.Errorf("convert: print to pdf: %w", err)
	}

	logger.Debug().Str("request_id", requestID).Str("url", url).Int("bytes", len(data)).Msg("conversion complete")
	reg.ObserveConversion(time.Since(start).Seconds(), "success")
	return data, nil
}

// ConvertToFile behaves like Convert but writes the PDF bytes to outPath,
// creating any missing parent directories.
func ConvertToFile(ctx context.Context, p pool, input Input, outPath string, opts pdfopts.Options, reg *metrics.Registry, logger arbor.ILogger) error {
	data, err := Convert(ctx, p, input, opts, reg, logger)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("convert: create output directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("convert: write %s: %w", outPath, err)
	}
	return nil
}
