/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package loggingutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

var (
	noOnce   sync.Once
	noLogger pslog.Logger
)

// NoopLogger returns a disabled pslog.Logger that discards all entries.
func NoopLogger() pslog.Logger {
	noOnce.Do(func() {
		noLogger = pslog.NoopLogger()
	})
	return noLogger
}

// NewLogger builds a structured logger writing to w, honouring <prefix>LEVEL style
// environment overrides.
func NewLogger(w io.Writer, envPrefix string, level pslog.Level) pslog.Logger {
	return pslog.LoggerFromEnv(
		pslog.WithEnvPrefix(envPrefix),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: level}),
		pslog.WithEnvWriter(w),
	)
}

// ContextLogger returns the logger carried by ctx. pslog.LoggerFromContext falls back to
// a noop logger, which is reported here as absent.
func ContextLogger(ctx context.Context) (pslog.Logger, bool) {
	logger := pslog.LoggerFromContext(ctx)
	if logger == nil || logger == pslog.NoopLogger() {
		return nil, false
	}
	return logger, true
}

// EnsureLogger returns l when non-nil, otherwise it returns a disabled logger.
func EnsureLogger(l pslog.Logger) pslog.Logger {
	if l != nil {
		return l
	}
	return NoopLogger()
}

// Subsystem builds a dot-delimited subsystem path, skipping empty fragments.
func Subsystem(parts ...string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, ". ")
		if part != "" {
			filtered = append(filtered, part)
		}
	}
	return strings.Join(filtered, ".")
}

// WithSubsystem attaches a "sys" field to every entry logged through the result.
func WithSubsystem(logger pslog.Logger, subsystem string) pslog.Logger {
	logger = EnsureLogger(logger)
	if subsystem == "" {
		return logger
	}
	return logger.With("sys", subsystem)
}
