package transport

import (
	"sync"
	"time"
)

// Status represents the health state of the backend as seen by this client.
type Status int

const (
	StatusHealthy   Status = iota // Backend is answering normally
	StatusDegraded                // Backend is slow or failing often
	StatusThrottled               // Backend is rate limiting us
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Stats holds monitoring statistics for the backend.
type Stats struct {
	Status            Status        `json:"status"`
	AverageLatency    time.Duration `json:"average_latency"`
	Requests          int           `json:"requests"`
	Failures          int           `json:"failures"`
	ErrorRate         float64       `json:"error_rate"`
	ThrottleCount     int           `json:"throttle_count"`
	RequestsLast1Hour int           `json:"requests_last_1h"`
	LastSuccessAt     time.Time     `json:"last_success_at"`
	LastFailureAt     time.Time     `json:"last_failure_at"`
}

// Monitor tracks latency, failure rate and throttling for the backend.
type Monitor struct {
	mu sync.RWMutex

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	requests      int
	failures      int
	lastSuccessAt time.Time
	lastFailureAt time.Time

	throttleCount      int
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	// Sliding window
	requestTimestamps []time.Time
	windowDuration    time.Duration

	// Thresholds
	slowResponseThreshold time.Duration
	degradedThreshold     float64
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
		degradedThreshold:     0.3, // 30% error rate
	}
}

// RecordSuccess records a completed round trip with its latency.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.requests++
	m.lastSuccessAt = now

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
	m.track(now)
}

// RecordFailure records a round trip that failed at the transport level or
// came back 5xx.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.requests++
	m.failures++
	m.lastFailureAt = now
	m.track(now)
}

func (m *Monitor) track(now time.Time) {
	m.requestTimestamps = append(m.requestTimestamps, now)

	cutoff := now.Add(-m.windowDuration)
	i := 0
	for i < len(m.requestTimestamps) && !m.requestTimestamps[i].After(cutoff) {
		i++
	}
	m.requestTimestamps = m.requestTimestamps[i:]
}

// RecordThrottle records a 429 response. A zero retryAfter defaults to one
// minute.
func (m *Monitor) RecordThrottle(retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = time.Now()
	m.throttleCount++
	m.retryAfterDuration = time.Minute
	if retryAfter > 0 {
		m.retryAfterDuration = retryAfter
	}
}

// Status returns the current backend status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status()
}

func (m *Monitor) status() Status {
	sinceThrottle := time.Since(m.lastThrottleTime)

	if m.throttleCount > 0 && sinceThrottle < m.retryAfterDuration {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 && m.averageLatency() > m.slowResponseThreshold {
		return StatusDegraded
	}
	if m.requests >= 10 && float64(m.failures)/float64(m.requests) > m.degradedThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

func (m *Monitor) averageLatency() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// RetryAfter returns remaining time before the backend expects us back.
func (m *Monitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.retryAfterDuration > 0 {
		remaining := m.retryAfterDuration - time.Since(m.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}
	return 0
}

// Stats returns current monitoring statistics.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Status:            m.status(),
		AverageLatency:    m.averageLatency(),
		Requests:          m.requests,
		Failures:          m.failures,
		ThrottleCount:     m.throttleCount,
		RequestsLast1Hour: len(m.requestTimestamps),
		LastSuccessAt:     m.lastSuccessAt,
		LastFailureAt:     m.lastFailureAt,
	}
	if m.requests > 0 {
		stats.ErrorRate = float64(m.failures) / float64(m.requests)
	}
	return stats
}
