// Package di is a small lazily-resolving service container used by modules
// to share their services.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by key.
type ServiceRegistry interface {
	Get(key string) any
}

// Container is a ServiceRegistry that modules register into.
type Container interface {
	ServiceRegistry
	Register(key string, value any)
	RegisterFactory(key string, factory func(ServiceRegistry) any)
}

type registration struct {
	factory func(ServiceRegistry) any
	once    sync.Once
	value   any
}

type container struct {
	mu       sync.RWMutex
	services map[string]*registration
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{services: make(map[string]*registration)}
}

// Register stores a ready-made value under key.
func (c *container) Register(key string, value any) {
	r := &registration{value: value}
	r.once.Do(func() {})

	c.mu.Lock()
	c.services[key] = r
	c.mu.Unlock()
}

// RegisterFactory stores a factory that builds the service on first Get.
func (c *container) RegisterFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	c.services[key] = &registration{factory: factory}
	c.mu.Unlock()
}

// Get resolves key, building it on first use. It panics on unknown keys,
// which only happens on a wiring mistake.
func (c *container) Get(key string) any {
	c.mu.RLock()
	r, ok := c.services[key]
	c.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", key))
	}

	r.once.Do(func() {
		r.value = r.factory(c)
	})
	return r.value
}

// Token is a typed service key.
type Token[T any] struct {
	key string
}

// NewToken creates a token for key.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the registry key.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a typed factory under the token key.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(tok.key, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed service.
func GetToken[T any](sr ServiceRegistry, tok Token[T]) T {
	v, ok := sr.Get(tok.key).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", tok.key))
	}
	return v
}
