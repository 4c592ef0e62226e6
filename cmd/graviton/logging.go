// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns the process logger. Library packages log through
// log/slog; the handler behind it is a charmbracelet logger on w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: level <= slog.LevelInfo,
		Prefix:          "graviton",
	})
	return slog.New(handler)
}

// logLevel picks the level for a run: debug when verbose, info for background
// updates (nobody watches their output), warn otherwise.
func logLevel(verbose, background bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case background:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}
