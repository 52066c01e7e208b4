package events_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/internal/events"
)

type swapPayload struct {
	Hash string
}

func TestRegistry_EmitOrderAndUnsubscribe(t *testing.T) {
	r := events.NewRegistry("engine")

	var got []string
	unsub := r.On(events.SwapStarted, func(ev events.Event) {
		got = append(got, "named:"+ev.Name)
	})
	r.OnAny(func(ev events.Event) {
		got = append(got, "any:"+ev.Name)
	})

	r.Emit(events.SwapStarted, nil)
	r.Emit(events.SwapFailed, nil)
	unsub()
	r.Emit(events.SwapStarted, nil)

	assert.Equal(t, []string{
		"named:swapStarted",
		"any:swapStarted",
		"any:swapFailed",
		"any:swapStarted",
	}, got)
}

func TestSubscribe_TypedPayload(t *testing.T) {
	r := events.NewRegistry("monitor")

	var hashes []string
	events.Subscribe(r, events.TransactionCompleted, func(p swapPayload) {
		hashes = append(hashes, p.Hash)
	})

	r.Emit(events.TransactionCompleted, swapPayload{Hash: "0xabc"})
	r.Emit(events.TransactionCompleted, "not a payload")

	require.Len(t, hashes, 1)
	assert.Equal(t, "0xabc", hashes[0])
}

func TestRegistry_ForwardKeepsSource(t *testing.T) {
	src := events.NewRegistry("cache")
	hub := events.NewRegistry("hub")

	var ev events.Event
	hub.On(events.CacheHit, func(e events.Event) { ev = e })
	src.Forward(hub)

	src.Emit(events.CacheHit, "pool_info_0x01")

	assert.Equal(t, "cache", ev.Source)
	assert.Equal(t, "pool_info_0x01", ev.Payload)
}

func TestRegistry_ConcurrentEmit(t *testing.T) {
	r := events.NewRegistry("x")

	var mu sync.Mutex
	count := 0
	r.OnAny(func(events.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit(events.MetricsCollected, i)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}
