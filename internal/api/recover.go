// Package api wraps the backend endpoints the intake client calls beyond
// the raw request layer: session recovery, subscriptions, tours and uploads.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vietddude/intake/internal/credential"
	"github.com/vietddude/intake/internal/infra/transport"
)

// Result is a backend response passed through without a dedicated type.
type Result map[string]any

// Recoverer tries to revive a session from the stored credentials and
// cookies. It talks to the transport directly so a failure never triggers
// the session guard.
type Recoverer struct {
	baseURL string
	doer    transport.Doer
	creds   *credential.Store
}

// NewRecoverer creates a recoverer against baseURL. creds may be nil, in
// which case only cookies identify the session.
func NewRecoverer(baseURL string, doer transport.Doer, creds *credential.Store) *Recoverer {
	return &Recoverer{baseURL: strings.TrimRight(baseURL, "/"), doer: doer, creds: creds}
}

// Recover validates the current token and falls back to an explicit
// refresh. It reports whether either succeeded.
func (r *Recoverer) Recover(ctx context.Context) bool {
	if r.ok(ctx, http.MethodGet, "/api/validate-token", true) {
		slog.Info("Session recovered via token validation")
		return true
	}
	if r.ok(ctx, http.MethodPost, "/api/refresh", false) {
		slog.Info("Session recovered via token refresh")
		return true
	}
	return false
}

func (r *Recoverer) ok(ctx context.Context, method, path string, jsonBody bool) bool {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, nil)
	if err != nil {
		slog.Error("Session recovery failed", "error", err)
		return false
	}
	if jsonBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.creds != nil {
		r.creds.SetAuthHeaders(ctx, req.Header)
	}
	resp, err := r.doer.Do(req)
	if err != nil {
		slog.Warn("Session recovery failed", "path", path, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
