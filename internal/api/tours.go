package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/credential"
	"github.com/vietddude/intake/internal/fetch"
	"github.com/vietddude/intake/internal/infra/storage"
)

// Tours answers whether onboarding tours should be shown. The backend is the
// source of truth; answers are cached for the current user only, and the
// durable tier keeps a completion flag as a fallback.
type Tours struct {
	client  *fetch.Client
	creds   *credential.Store
	durable storage.Tier

	mu        sync.Mutex
	email     string
	completed map[string]bool
	isNew     *bool
}

// NewTours creates the tour service. creds may be nil when the email is
// always provided through SetUser.
func NewTours(client *fetch.Client, creds *credential.Store, durable storage.Tier) *Tours {
	return &Tours{
		client:    client,
		creds:     creds,
		durable:   durable,
		completed: make(map[string]bool),
	}
}

// SetUser switches the user context and drops every cached answer.
func (t *Tours) SetUser(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.email = email
	t.completed = make(map[string]bool)
	t.isNew = nil
	slog.Debug("Tour user context set", "email", email)
}

// Reset forgets the user and the cache.
func (t *Tours) Reset() {
	t.SetUser("")
}

func (t *Tours) userEmail(ctx context.Context) string {
	t.mu.Lock()
	email := t.email
	t.mu.Unlock()
	if email == "" && t.creds != nil {
		email = t.creds.Email(ctx)
	}
	return email
}

func cacheKey(email, tour string) string {
	return email + "_" + tour
}

// ShouldShow reports whether tour should be shown. Without a user, or when
// the backend cannot answer, the tour is not shown.
func (t *Tours) ShouldShow(ctx context.Context, tour string) bool {
	email := t.userEmail(ctx)
	if email == "" {
		return false
	}
	key := cacheKey(email, tour)

	t.mu.Lock()
	done, cached := t.completed[key]
	t.mu.Unlock()
	if cached {
		return !done
	}

	req := fetch.NewRequest(http.MethodGet, "/api/should-show-tour/"+url.PathEscape(tour))
	req.Header.Set(domain.HeaderUserEmail, email)
	resp, err := t.client.Do(ctx, req)
	if err != nil {
		slog.Warn("Tour status unavailable, not showing tour", "tour", tour, "error", err)
		return false
	}
	var out struct {
		Success    bool `json:"success"`
		ShouldShow bool `json:"should_show"`
	}
	if err := resp.JSON(&out); err != nil || !out.Success {
		slog.Warn("Tour status unsuccessful, not showing tour", "tour", tour, "error", err)
		return false
	}

	t.mu.Lock()
	t.completed[key] = !out.ShouldShow
	t.mu.Unlock()
	t.syncFlag(ctx, tour, !out.ShouldShow)
	return out.ShouldShow
}

// IsFirstTimeUser reports whether the user has never completed a tour. Any
// failure is cached as "not new".
func (t *Tours) IsFirstTimeUser(ctx context.Context) bool {
	email := t.userEmail(ctx)
	if email == "" {
		return false
	}

	t.mu.Lock()
	if t.isNew != nil {
		v := *t.isNew
		t.mu.Unlock()
		return v
	}
	t.mu.Unlock()

	isNew := false
	req := fetch.NewRequest(http.MethodGet, "/api/get-tour-status")
	req.Header.Set(domain.HeaderUserEmail, email)
	if resp, err := t.client.Do(ctx, req); err != nil {
		slog.Warn("Tour history unavailable, assuming existing user", "error", err)
	} else {
		var out struct {
			Success bool `json:"success"`
			Data    *struct {
				Tours map[string]any `json:"tours"`
			} `json:"data"`
		}
		if err := resp.JSON(&out); err == nil && out.Success && out.Data != nil && out.Data.Tours != nil {
			isNew = len(out.Data.Tours) == 0
		}
	}

	t.mu.Lock()
	t.isNew = &isNew
	t.mu.Unlock()
	return isNew
}

// MarkCompleted records tour completion with the backend. If that fails only
// the durable flag is written.
func (t *Tours) MarkCompleted(ctx context.Context, tour string) error {
	email := t.userEmail(ctx)
	err := t.markRemote(ctx, email, tour)
	if err != nil {
		slog.Warn("Tour completion not saved remotely, keeping local flag", "tour", tour, "error", err)
	} else {
		t.mu.Lock()
		t.completed[cacheKey(email, tour)] = true
		if t.isNew != nil && *t.isNew {
			isNew := false
			t.isNew = &isNew
		}
		t.mu.Unlock()
	}
	t.syncFlag(ctx, tour, true)
	return err
}

func (t *Tours) markRemote(ctx context.Context, email, tour string) error {
	req, err := fetch.NewJSONRequest(http.MethodPost, "/api/update-tour-completion", map[string]any{
		"tour_name": tour,
		"completed": true,
	})
	if err != nil {
		return err
	}
	if email != "" {
		req.Header.Set(domain.HeaderUserEmail, email)
	}
	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return err
	}
	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := resp.JSON(&out); err != nil {
		return err
	}
	if !out.Success {
		if out.Error == "" {
			return errors.New("tour completion rejected")
		}
		return errors.New(out.Error)
	}
	return nil
}

// CompletedLocally reports the durable fallback flag for tour.
func (t *Tours) CompletedLocally(ctx context.Context, tour string) bool {
	v, ok, err := t.durable.Get(ctx, domain.KeyTourCompletedPrefix+tour)
	return err == nil && ok && v == "true"
}

func (t *Tours) syncFlag(ctx context.Context, tour string, completed bool) {
	key := domain.KeyTourCompletedPrefix + tour
	var err error
	if completed {
		err = t.durable.Set(ctx, key, "true")
	} else {
		err = t.durable.Delete(ctx, key)
	}
	if err != nil {
		slog.Warn("Tour flag not persisted", "key", key, "error", err)
	}
}
