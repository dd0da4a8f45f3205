package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by the engine, the renderer backends and the executor.
// By default nothing is logged. Passing nil restores the silent default.
//
// Levels in use:
//   - slog.LevelDebug: per-frame diagnostics (skipped frames, encoded passes)
//   - slog.LevelInfo: lifecycle events (device acquired, pipelines built)
//   - slog.LevelWarn: non-fatal issues (fallback adapter, verification mismatches)
//   - slog.LevelError: fatal frame or setup failures
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the currently installed logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
