package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/internal/circuitbreaker"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("rpc")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour

	var transitions []string
	cfg.OnStateChange = func(_ string, from, to gobreaker.State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb := circuitbreaker.New[int](cfg)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []string{"closed->open"}, transitions)

	called := false
	_, err := cb.Execute(func() (int, error) { called = true; return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cb := circuitbreaker.New[string](circuitbreaker.DefaultConfig("ok"))

	v, err := cb.Execute(func() (string, error) { return "block", nil })
	require.NoError(t, err)
	assert.Equal(t, "block", v)
	assert.Equal(t, "ok", cb.Name())
}

func TestCircuitBreaker_IsSuccessfulErrorsDoNotTrip(t *testing.T) {
	notFound := errors.New("not found")

	cfg := circuitbreaker.DefaultConfig("receipts")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, notFound) }
	cb := circuitbreaker.New[int](cfg)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, notFound })
		require.ErrorIs(t, err, notFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
