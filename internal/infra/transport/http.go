// Package transport provides the HTTP round-tripper used to reach the intake
// backend, with per-process health tracking.
package transport

import (
	"net/http"
	"strconv"
	"time"
)

// Doer is the minimal HTTP client surface the rest of the module needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTP wraps an http.Client and records every round trip in a Monitor.
// Per-request deadlines come from the request context, so the client itself
// carries no global timeout.
type HTTP struct {
	client  *http.Client
	Monitor *Monitor
}

// NewHTTP creates a transport. jar may be nil.
func NewHTTP(jar http.CookieJar) *HTTP {
	return &HTTP{
		client: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Monitor: NewMonitor(),
	}
}

// Do sends the request and records the outcome.
func (h *HTTP) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		h.Monitor.RecordFailure()
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		h.Monitor.RecordThrottle(parseRetryAfter(resp.Header.Get("Retry-After")))
		h.Monitor.RecordFailure()
	case resp.StatusCode >= 500:
		h.Monitor.RecordFailure()
	default:
		h.Monitor.RecordSuccess(time.Since(start))
	}

	return resp, nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
