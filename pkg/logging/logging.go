/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// envLogLevel is consulted when no explicit level is provided.
const envLogLevel = "LOG_LEVEL"

// ParseLevel converts a case-insensitive level name to a slog.Level.
// Unknown or empty values default to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewStructuredLogger creates a JSON logger writing to stderr with the
// module name and version attached to every record. Debug level enables
// source location tracking.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	return newLogger(os.Stderr, module, version, level)
}

func newLogger(w io.Writer, module, version, level string) *slog.Logger {
	if level == "" {
		level = os.Getenv(envLogLevel)
	}
	parsed := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     parsed,
		AddSource: parsed == slog.LevelDebug,
	})
	return slog.New(h).With(
		slog.String("module", module),
		slog.String("version", version))
}

// SetDefaultStructuredLogger installs a structured logger as the slog
// default, using LOG_LEVEL from the environment.
func SetDefaultStructuredLogger(module, version string) {
	slog.SetDefault(NewStructuredLogger(module, version, ""))
}

// SetDefaultStructuredLoggerWithLevel installs a structured logger as the
// slog default with an explicit level, overriding LOG_LEVEL.
func SetDefaultStructuredLoggerWithLevel(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(module, version, level))
}

// SetDefaultTeeLogger installs a default logger that writes every record to
// stderr and to the given writer (typically the run's aggregate log file).
func SetDefaultTeeLogger(w io.Writer, module, version, level string) {
	slog.SetDefault(newLogger(io.MultiWriter(os.Stderr, w), module, version, level))
}
