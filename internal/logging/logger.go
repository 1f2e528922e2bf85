// Package logging builds the slog loggers the commands and servers share.
// Everything logs to stderr: stdout carries the flow UI, NDJSON output or
// the MCP stdio transport depending on the surface.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a text logger at the given level, writing to stderr. The
// "error" key is normalized to "err" so log lines stay greppable across
// packages.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination, for tests.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeKeys,
	}))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func normalizeKeys(groups []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}
