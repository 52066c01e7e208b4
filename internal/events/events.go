// Package events provides a named, in-process event channel. Components own
// a Registry and emit on it; subscribers register handlers by event name.
package events

import (
	"sync"
	"time"
)

// Event names. These strings are part of the external contract.
const (
	SwapStarted          = "swapStarted"
	SwapCompleted        = "swapCompleted"
	SwapFailed           = "swapFailed"
	TransactionSubmitted = "transactionSubmitted"
	TransactionCompleted = "transactionCompleted"
	TransactionFailed    = "transactionFailed"
	TransactionTimeout   = "transactionTimeout"
	MetricsCollected     = "metricsCollected"
	AlertTriggered       = "alertTriggered"
	HighRiskTrade        = "highRiskTrade"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Event is a single emission.
type Event struct {
	Name      string
	Source    string
	Payload   any
	Timestamp time.Time
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Registry fans emitted events out to subscribers. Handlers run synchronously
// on the emitting goroutine, outside the registry lock.
type Registry struct {
	source string
	now    func() time.Time

	mu     sync.RWMutex
	nextID uint64
	named  map[string][]subscription
	any    []subscription
}

// NewRegistry creates a Registry that stamps events with source.
func NewRegistry(source string) *Registry {
	return &Registry{
		source: source,
		now:    time.Now,
		named:  make(map[string][]subscription),
	}
}

// Source returns the component name stamped on emitted events.
func (r *Registry) Source() string {
	return r.source
}

// On subscribes fn to events with the given name. The returned func removes
// the subscription.
func (r *Registry) On(name string, fn Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.named[name] = append(r.named[name], subscription{id: id, fn: fn})

	return func() { r.remove(name, id) }
}

// OnAny subscribes fn to every event.
func (r *Registry) OnAny(fn Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.any = append(r.any, subscription{id: id, fn: fn})

	return func() { r.remove("", id) }
}

// Emit delivers payload to the subscribers of name, then to OnAny subscribers.
func (r *Registry) Emit(name string, payload any) {
	ev := Event{
		Name:      name,
		Source:    r.source,
		Payload:   payload,
		Timestamp: r.now(),
	}

	r.deliver(ev)
}

// Forward re-emits every event of r on dst, keeping the original name and source.
func (r *Registry) Forward(dst *Registry) func() {
	return r.OnAny(func(ev Event) {
		dst.deliver(ev)
	})
}

func (r *Registry) deliver(ev Event) {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.named[ev.Name])+len(r.any))
	for _, s := range r.named[ev.Name] {
		handlers = append(handlers, s.fn)
	}
	for _, s := range r.any {
		handlers = append(handlers, s.fn)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (r *Registry) remove(name string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		r.any = without(r.any, id)
		return
	}
	r.named[name] = without(r.named[name], id)
	if len(r.named[name]) == 0 {
		delete(r.named, name)
	}
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Subscribe registers a typed handler. Events whose payload is not a T are ignored.
func Subscribe[T any](r *Registry, name string, fn func(T)) func() {
	return r.On(name, func(ev Event) {
		if p, ok := ev.Payload.(T); ok {
			fn(p)
		}
	})
}
