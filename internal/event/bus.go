// Package event provides a typed, ordered listener registry.
package event

import "sync"

// Bus fans a payload out to every subscriber in registration order. A latched
// bus remembers the first published payload and replays it to subscribers that
// arrive later; each subscriber sees the payload exactly once.
type Bus[P any] struct {
	mu        sync.Mutex
	listeners []func(P)
	latch     bool
	fired     bool
	value     P
}

// NewBus returns a plain bus.
func NewBus[P any]() *Bus[P] {
	return &Bus[P]{}
}

// NewLatch returns a bus that replays its first payload to late subscribers.
// Later publishes are ignored.
func NewLatch[P any]() *Bus[P] {
	return &Bus[P]{latch: true}
}

// Subscribe registers fn. Nil listeners are ignored.
func (b *Bus[P]) Subscribe(fn func(P)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	replay := b.latch && b.fired
	value := b.value
	b.mu.Unlock()

	if replay {
		fn(value)
	}
}

// Publish invokes every subscriber with p on the calling goroutine.
func (b *Bus[P]) Publish(p P) {
	b.mu.Lock()
	if b.latch {
		if b.fired {
			b.mu.Unlock()
			return
		}
		b.fired = true
		b.value = p
	}
	listeners := make([]func(P), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// Len returns the number of subscribers.
func (b *Bus[P]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
