// Package connection tracks whether the backend is reachable and lets the
// rest of the client subscribe to online/offline transitions.
package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/intake/internal/infra/transport"
	"github.com/vietddude/intake/internal/metrics"
)

// Status is the connectivity state delivered to listeners.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Monitor holds the online flag and its listener set. It starts online.
type Monitor struct {
	mu        sync.RWMutex
	online    bool
	listeners map[uint64]func(Status)
	nextID    uint64

	client    transport.Doer
	healthURL string
	timeout   time.Duration
	probes    singleflight.Group
}

// NewMonitor creates a monitor that probes healthURL with the given timeout.
func NewMonitor(client transport.Doer, healthURL string, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	metrics.ConnectionOnline.Set(1)
	return &Monitor{
		online:    true,
		listeners: make(map[uint64]func(Status)),
		client:    client,
		healthURL: healthURL,
		timeout:   timeout,
	}
}

// IsOnline reports the last known connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity signal. Listeners are notified
// synchronously, and only on an actual transition.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	callbacks := make([]func(Status), 0, len(m.listeners))
	for _, cb := range m.listeners {
		callbacks = append(callbacks, cb)
	}
	m.mu.Unlock()

	status := StatusOffline
	gauge := 0.0
	if online {
		status = StatusOnline
		gauge = 1
	}
	metrics.ConnectionOnline.Set(gauge)
	slog.Info("Connection status changed", "status", status)

	for _, cb := range callbacks {
		notify(cb, status)
	}
}

func notify(cb func(Status), status Status) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Connection listener error", "status", status, "panic", r)
		}
	}()
	cb(status)
}

// OnStatusChange registers a listener and returns its unsubscribe function.
func (m *Monitor) OnStatusChange(cb func(Status)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = cb
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// OnOnline registers fn for offline to online transitions only.
func (m *Monitor) OnOnline(fn func()) func() {
	return m.OnStatusChange(func(s Status) {
		if s == StatusOnline {
			fn()
		}
	})
}

// CheckHealth performs one bounded liveness probe. It returns false without a
// network call when the monitor already knows it is offline. Concurrent
// callers share a single probe, which outlives any one caller's
// cancellation and is bounded by the monitor timeout.
func (m *Monitor) CheckHealth(ctx context.Context) bool {
	if !m.IsOnline() {
		return false
	}
	shared := context.WithoutCancel(ctx)
	ch := m.probes.DoChan("health", func() (any, error) {
		return m.probe(shared), nil
	})
	select {
	case <-ctx.Done():
		return false
	case res := <-ch:
		return res.Val.(bool)
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.healthURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		slog.Debug("Health probe failed", "url", m.healthURL, "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Run probes the backend every interval and feeds the result into SetOnline
// until ctx is cancelled. It is the only source of offline transitions in a
// headless process.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}
