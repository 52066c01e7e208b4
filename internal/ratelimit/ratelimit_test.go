package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/swap-router/internal/apperror"
)

func allowed(l *Limiter, n int) int {
	count := 0
	for range n {
		if l.Allow() {
			count++
		}
	}
	return count
}

func TestLimiter_Burst(t *testing.T) {
	assert.Equal(t, 60, allowed(New("rpc", 600), 100))
	assert.Equal(t, 1, allowed(New("rpc", 5), 3), "burst is at least one")
}

func TestLimiter_WaitFailsBeforeDeadline(t *testing.T) {
	l := New("rpc", 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeRateLimitExceeded))
	assert.Contains(t, err.Error(), "rpc")
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New("rpc", 0)
	assert.Equal(t, 1000, allowed(l, 1000))
	assert.NoError(t, l.Wait(context.Background()))
}
