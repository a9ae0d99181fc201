package fetch

import (
	"log/slog"
	"sync"

	"github.com/vietddude/intake/internal/core/domain"
)

// Bus delivers subscription-required events to the application shell.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(domain.SubscriptionEvent)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]func(domain.SubscriptionEvent))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(domain.SubscriptionEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every subscriber synchronously. A panicking subscriber is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(ev domain.SubscriptionEvent) {
	b.mu.RLock()
	subs := make([]func(domain.SubscriptionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		deliver(fn, ev)
	}
}

func deliver(fn func(domain.SubscriptionEvent), ev domain.SubscriptionEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Subscription listener panicked", "panic", r)
		}
	}()
	fn(ev)
}
