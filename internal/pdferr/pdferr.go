// Package pdferr defines the sentinel error taxonomy shared by every layer
// of the conversion pipeline, from browser discovery down to the CDP
// transport. Callers compare against these sentinels with errors.Is; a
// failure that falls in this taxonomy is surfaced wrapping one of them with
// %w so the causal chain is preserved end to end. Other failures (file
// system, context cancellation, process start) wrap their own cause instead.
package pdferr

import "errors"

var (
	// ErrBrowserNotFound means the locator exhausted every candidate path
	// and the OS "find executable by name" fallback.
	ErrBrowserNotFound = errors.New("browser executable not found")

	// ErrPortUnavailable means no free debugging port was found in the
	// probed range.
	ErrPortUnavailable = errors.New("no free debugging port available")

	// ErrLaunchUnconfirmed means the browser's startup log never produced
	// a "DevTools listening on" line within the line budget.
	ErrLaunchUnconfirmed = errors.New("browser launch not confirmed")

	// ErrPortConflict means the browser's own startup log reported a bind
	// error for the requested debugging port.
	ErrPortConflict = errors.New("debugging port conflict")

	// ErrConnectionError means the transport failed to open or closed
	// unexpectedly.
	ErrConnectionError = errors.New("cdp connection error")

	// ErrNavigationError means Page.navigate returned a non-empty error
	// field.
	ErrNavigationError = errors.New("navigation error")

	// ErrPDFGenerationError means Page.printToPDF failed or returned no
	// data.
	ErrPDFGenerationError = errors.New("pdf generation error")

	// ErrPoolClosed means acquire or release was invoked after shutdown.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrAcquireTimeout means a wait exceeded the configured acquire
	// timeout.
	ErrAcquireTimeout = errors.New("acquire timeout")

	// ErrCommandTimeout means a CDP command did not complete within its
	// deadline.
	ErrCommandTimeout = errors.New("cdp command timeout")
)
