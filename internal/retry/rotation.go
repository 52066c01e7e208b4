package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Endpoint pairs a client with the URL it talks to.
type Endpoint[C any] struct {
	URL    string
	Client C
}

// Rotator cycles through an ordered list of endpoints. Every failed call
// moves the cursor to the next endpoint, wrapping around at the end.
type Rotator[C any] struct {
	mu        sync.Mutex
	endpoints []Endpoint[C]
	current   int
	timeout   time.Duration
	onRotate  func(from, to Endpoint[C], err error)
}

// NewRotator creates a Rotator racing each call against timeout.
func NewRotator[C any](endpoints []Endpoint[C], timeout time.Duration) (*Rotator[C], error) {
	if len(endpoints) == 0 {
		return nil, errors.New("retry: rotator needs at least one endpoint")
	}
	return &Rotator[C]{
		endpoints: append([]Endpoint[C](nil), endpoints...),
		timeout:   timeout,
	}, nil
}

// OnRotate registers a callback fired whenever the cursor advances.
func (r *Rotator[C]) OnRotate(fn func(from, to Endpoint[C], err error)) {
	r.mu.Lock()
	r.onRotate = fn
	r.mu.Unlock()
}

// Current returns the endpoint calls are currently sent to.
func (r *Rotator[C]) Current() Endpoint[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoints[r.current]
}

// Endpoints returns every endpoint in order.
func (r *Rotator[C]) Endpoints() []Endpoint[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Endpoint[C](nil), r.endpoints...)
}

// Advance moves to the next endpoint after a failure on from. It is a no-op
// when another caller already advanced past from.
func (r *Rotator[C]) Advance(from Endpoint[C], cause error) Endpoint[C] {
	r.mu.Lock()
	if r.endpoints[r.current].URL != from.URL {
		cur := r.endpoints[r.current]
		r.mu.Unlock()
		return cur
	}
	r.current = (r.current + 1) % len(r.endpoints)
	to := r.endpoints[r.current]
	fn := r.onRotate
	r.mu.Unlock()

	if fn != nil {
		fn(from, to, cause)
	}
	return to
}

// Call runs op against the current endpoint under Do, racing every attempt
// against the rotator timeout. The rotator advances on a timeout or on an
// error ShouldRetry accepts; errors that end the call leave it in place.
func Call[C, T any](ctx context.Context, r *Rotator[C], opts Options, op func(ctx context.Context, client C) (T, error)) (T, error) {
	return Do(ctx, opts, func(ctx context.Context) (T, error) {
		ep := r.Current()
		v, err := Race(ctx, r.timeout, func(ctx context.Context) (T, error) {
			return op(ctx, ep.Client)
		})
		if err != nil {
			if apperror.HasCode(err, apperror.CodeServiceTimeout) || opts.ShouldRetry == nil || opts.ShouldRetry(err) {
				r.Advance(ep, err)
			}
			return v, err
		}
		return v, nil
	})
}
