// Package pdflog provides the thin conventions this repository layers on
// top of arbor.ILogger: a ready-to-use default logger for callers that
// don't configure one, and a couple of helpers used at several call sites.
package pdflog

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Default returns a console-backed logger, used whenever a constructor is
// not handed an explicit logger. Components never nil-check their logger;
// they always have one.
func Default() arbor.ILogger {
	return arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: "15:04:05.000",
	})
}

// FromLevel builds the default console logger and applies level, parsed
// the way arbor parses level strings ("debug", "info", "warn", "error").
// An unrecognized level is left to arbor's own fallback behavior.
func FromLevel(level string) arbor.ILogger {
	logger := Default()
	if level == "" {
		return logger
	}
	return logger.WithLevelFromString(level)
}

// OrDefault returns logger if non-nil, else Default(). Every constructor in
// this repository routes its Logger option through this so a zero-value
// PoolConfig/Options struct is still safe to use.
func OrDefault(logger arbor.ILogger) arbor.ILogger {
	if logger == nil {
		return Default()
	}
	return logger
}

// Millis renders a duration as a float64 of milliseconds, the unit this
// repo logs durations in.
func Millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / float64(time.Millisecond)
}
