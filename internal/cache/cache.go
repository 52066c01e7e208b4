// Package cache provides a typed in-memory TTL cache.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/events"
)

// DefaultTTL applies to GetOrFetch calls that pass a non-positive ttl.
const DefaultTTL = 60 * time.Second

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// Lookup is the payload of hit and miss events.
type Lookup struct {
	Cache string `json:"cache"`
	Key   string `json:"key"`
}

// Failure is the payload of error events.
type Failure struct {
	Cache string `json:"cache"`
	Key   string `json:"key"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	name     string
	now      func() time.Time
	notifier *events.Registry
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotifier makes the cache emit hit, miss and error events.
func WithNotifier(r *events.Registry) Option {
	return func(o *options) { o.notifier = r }
}

// WithName labels events emitted by this cache.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Cache is a goroutine-safe key/value store with per-entry TTL.
// Expired entries are never returned and are evicted on access or by Sweep.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]entry[V]
	opts    options
	stop    chan struct{}
	stopped sync.Once
}

// New creates a Cache. A positive cleanupInterval starts a background sweep.
func New[K comparable, V any](cleanupInterval time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[K, V]{
		items: make(map[K]entry[V]),
		opts:  o,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.sweepLoop(cleanupInterval)
	}

	return c
}

// Set stores value under key for ttl, replacing any previous entry.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: c.opts.now(), ttl: ttl}
	c.mu.Unlock()
}

// Get returns the value for key if present and fresh.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.notify(events.CacheHit, key)
	} else {
		c.notify(events.CacheMiss, key)
	}
	return v, ok
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	now := c.opts.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Entries returns a snapshot of all fresh entries.
func (c *Cache[K, V]) Entries() map[K]V {
	now := c.opts.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[K]V, len(c.items))
	for k, e := range c.items {
		if !e.expired(now) {
			out[k] = e.value
		}
	}
	return out
}

// Close stops the background sweep. It is safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.stopped.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) lookup(key K) (V, bool) {
	now := c.opts.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(now) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache[K, V]) notify(name string, key K) {
	if c.opts.notifier == nil {
		return
	}
	c.opts.notifier.Emit(name, Lookup{Cache: c.opts.name, Key: keyString(key)})
}

func (c *Cache[K, V]) notifyError(key K, err error) {
	if c.opts.notifier == nil {
		return
	}
	c.opts.notifier.Emit(events.CacheError, Failure{Cache: c.opts.name, Key: keyString(key), Error: err.Error(), Err: err})
}

// GetOrFetch returns the cached value for key or calls producer on a miss and
// stores its result for ttl. Concurrent misses each call producer. A producer
// error leaves the cache untouched and is returned wrapped.
func GetOrFetch[K comparable, V any](ctx context.Context, c *Cache[K, V], key K, ttl time.Duration, producer func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	v, err := producer(ctx)
	if err != nil {
		c.notifyError(key, err)
		var zero V
		return zero, apperror.New(apperror.CodeCacheProducerFailure,
			apperror.WithCause(err),
			apperror.WithContext(keyString(key)))
	}

	c.Set(ctx, key, v, ttl)
	return v, nil
}

// WithPrefix filters a snapshot down to string keys starting with prefix.
func WithPrefix[V any](entries map[string]V, prefix string) map[string]V {
	out := make(map[string]V)
	for k, v := range entries {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	default:
		return ""
	}
}
