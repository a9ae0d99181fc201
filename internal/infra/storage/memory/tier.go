package memory

import (
	"context"
	"sync"
)

// Tier is an in-process storage tier. It backs the session tier and stands in
// for the durable tier when no redis is configured.
type Tier struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewTier() *Tier {
	return &Tier{data: make(map[string]string)}
}

func (t *Tier) Get(ctx context.Context, key string) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data[key]
	return v, ok, nil
}

func (t *Tier) Set(ctx context.Context, key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[key] = value
	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.data, key)
	return nil
}

func (t *Tier) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = make(map[string]string)
	return nil
}

// Len returns the number of stored keys.
func (t *Tier) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
