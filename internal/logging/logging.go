// Package logging builds the slog loggers used across the auditor.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// LevelSilent sits above every standard level and suppresses all output.
const LevelSilent = slog.Level(100)

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return New(io.Discard, LevelSilent)
}

// LevelFromString converts debug, info, warn or error (case-insensitive) to a slog.Level.
// Unrecognized strings map to warn, the CLI default.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off":
		return LevelSilent
	default:
		return slog.LevelWarn
	}
}

// LevelFromFlags picks a level from the CLI flags. An explicit level wins,
// --quiet silences everything, --verbose lowers the threshold to info.
func LevelFromFlags(explicit string, verbose, quiet bool) slog.Level {
	if explicit != "" {
		return LevelFromString(explicit)
	}
	if quiet {
		return LevelSilent
	}
	if verbose {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
