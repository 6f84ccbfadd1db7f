package logging

import (
	"io"
	"log/slog"
)

// NewNopLogger returns a logger that drops everything. Tests use it for
// services that take an explicit logger.
func NewNopLogger() Logger {
	//nolint:exhaustruct
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
