/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package retry

import (
	"context"
	"time"

	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/loggingutil"
	"pkt.systems/pslog"
)

// Config controls retry behaviour.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// MaxElapsed bounds the total time spent, including waits. Zero means no bound.
	MaxElapsed time.Duration
	// RetryIf decides whether an error is worth another attempt.
	// Defaults to errors.IsRetryable, which only accepts transport faults.
	RetryIf func(error) bool
	Logger  pslog.Logger
}

// DefaultConfig retries transport faults three times starting at 200ms.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 50 * time.Millisecond
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 2 * time.Second
	}
	if c.RetryIf == nil {
		c.RetryIf = tserrors.IsRetryable
	}
	c.Logger = loggingutil.EnsureLogger(c.Logger)
	return c
}

// Do runs fn until it succeeds, returns an error RetryIf rejects, or the attempt or
// time budget runs out. The last error from fn is returned unchanged.
func Do(ctx context.Context, op string, cfg Config, fn func(context.Context) error) error {
	cfg = cfg.normalized()
	var deadline time.Time
	if cfg.MaxElapsed > 0 {
		deadline = time.Now().Add(cfg.MaxElapsed)
	}
	delay := cfg.BaseDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !cfg.RetryIf(err) {
			return err
		}
		if cfg.MaxElapsed <= 0 && attempt >= cfg.MaxAttempts {
			return err
		}
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return err
			}
			if delay > remaining {
				delay = remaining
			}
		}
		cfg.Logger.Warn("retrying operation",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		delay = next
	}
}
