// Package logging builds the slog loggers used by the stereo command.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New returns a logger writing to stderr with the provided level string
// (debug, info, warn, error). format may be "json" or "text".
func New(level string, format string) *slog.Logger {
	return NewWriter(os.Stderr, level, format)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogRenderStart logs the beginning of a render job.
func LogRenderStart(logger *slog.Logger, left, right, output string) {
	logger.Info("render started",
		"left", left,
		"right", right,
		"output", output,
	)
}

// LogRenderComplete logs a finished render job.
func LogRenderComplete(logger *slog.Logger, jobID string, duration time.Duration, width, height int) {
	logger.Info("render completed",
		"id", jobID,
		"duration_ms", duration.Milliseconds(),
		"width", width,
		"height", height,
	)
}

// LogRenderError logs a failed render job.
func LogRenderError(logger *slog.Logger, jobID string, duration time.Duration, err error) {
	logger.Error("render failed",
		"id", jobID,
		"duration_ms", duration.Milliseconds(),
		"error", err.Error(),
	)
}
