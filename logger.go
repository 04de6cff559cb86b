// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package icmark

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gg"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while an HTTP session is rendering.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for icmark and all its sub-packages, and
// forwards it to gg so renderer warnings land in the same place.
// By default the engine produces no log output.
//
// Pass nil to restore the default silent behavior.
//
// Log levels used by icmark:
//   - [slog.LevelDebug]: per-event diagnostics (hit tests, surface sizes)
//   - [slog.LevelInfo]: lifecycle events (image loaded, export delivered)
//   - [slog.LevelWarn]: non-fatal failures (a delivery fallback failed, a render
//     was skipped because the surface is missing)
//
// Example:
//
//	icmark.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	// gg restores its own silent logger for nil.
	gg.SetLogger(l)

	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by icmark.
// Sub-packages call this to share one logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
