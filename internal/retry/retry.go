// Package retry provides exponential backoff for operations that fail
// transiently, such as release artifact downloads.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds backoff parameters.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Option is a functional option for backoff configuration.
type Option func(*Config)

// Do executes op, retrying with exponential backoff on failure. Context
// cancellation is respected between attempts.
//
// Errors wrapped with Permanent are not retried.
func Do(ctx context.Context, op func() error, opts ...Option) error {
	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("cancelled after %d attempts: %w", attempt+1, ctx.Err())
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			}
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) { c.InitialDelay = d }
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) { c.MaxDelay = d }
}

// PermanentError marks an error that retrying cannot fix, such as a
// request for a version that does not exist.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked non-retryable.
func IsPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}
