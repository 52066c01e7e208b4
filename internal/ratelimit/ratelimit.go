// Package ratelimit throttles outbound RPC calls so a shared node quota is
// not exhausted by graph rebuilds and receipt polling.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Limiter is a token bucket sized in requests per minute.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

// New allows perMinute requests with a burst of a tenth of that, at least
// one. A non-positive rate never throttles.
func New(name string, perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	burst := max(perMinute/10, 1)
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Wait blocks for a token. It fails with RATE_LIMIT_EXCEEDED when ctx would
// expire first, without consuming a token.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(l.name))
	}
	return nil
}

func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
