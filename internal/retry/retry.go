// Package retry runs fallible operations with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Options controls backoff. Zero fields take the Default values.
type Options struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// ShouldRetry decides whether a failed attempt is retried. Nil retries every error.
	ShouldRetry func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Default returns 3 attempts, 1s initial delay, 10s cap and factor 2.
func Default() Options {
	return Options{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}
}

func (o Options) withDefaults() Options {
	d := Default()
	if o.MaxAttempts < 1 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = d.InitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = d.BackoffFactor
	}
	return o
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last underlying error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Is matches the RETRY_EXHAUSTED application error code.
func (e *ExhaustedError) Is(target error) bool {
	t, ok := target.(*apperror.AppError)
	return ok && t.Code == apperror.CodeRetryExhausted
}

// Do calls op until it succeeds, attempts run out, ShouldRetry rejects the
// error, or ctx is done. Delays grow by BackoffFactor up to MaxDelay.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			return zero, err
		}
		if attempt >= opts.MaxAttempts {
			return zero, &ExhaustedError{Attempts: attempt, Last: err}
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, delay)
		}

		if err := wait(ctx, delay); err != nil {
			return zero, &ExhaustedError{Attempts: attempt, Last: err}
		}

		delay = time.Duration(float64(delay) * opts.BackoffFactor)
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Race runs op with a context that expires after timeout and returns as soon
// as either op finishes or the timeout fires. A late result is discarded; the
// underlying call is not interrupted beyond context cancellation.
func Race[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)

	go func() {
		v, err := op(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, apperror.New(apperror.CodeServiceTimeout,
			apperror.WithCause(ctx.Err()),
			apperror.WithContext(fmt.Sprintf("no result within %s", timeout)))
	}
}
