// Package credential holds the client's identity material: the obfuscated
// organization identifier, auth token, user email and organization id, plus
// the cookie jar used by the HTTP client.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/infra/storage"
)

// Login is the identity recorded after a successful sign-in.
type Login struct {
	Token        string
	RefreshToken string
	Email        string
	OrgID        string
	Organization string
}

// Store keeps the organization identifier in memory and mirrors it,
// obfuscated, into the session and durable tiers. The in-memory value is
// authoritative; the tiers are read only on a cold start.
type Store struct {
	mu           sync.RWMutex
	organization string

	session storage.Tier
	durable storage.Tier
	key     []byte
	jar     *Jar
}

// NewStore creates a store over the two tiers. jar may be nil.
func NewStore(session, durable storage.Tier, key string, jar *Jar) *Store {
	return &Store{
		session: session,
		durable: durable,
		key:     []byte(key),
		jar:     jar,
	}
}

// Jar returns the cookie jar, or nil.
func (s *Store) Jar() *Jar {
	return s.jar
}

// SetOrganization records the organization in memory and the session tier.
func (s *Store) SetOrganization(ctx context.Context, org string) error {
	encoded, err := Obfuscate(org, s.key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.organization = org
	s.mu.Unlock()

	if err := s.session.Set(ctx, domain.KeySessionOrganization, encoded); err != nil {
		return fmt.Errorf("persist organization: %w", err)
	}
	slog.Debug("Organization set", "organization", org)
	return nil
}

// Organization returns the current organization. Memory wins; otherwise the
// session tier then the durable tier are consulted, and a decoded value is
// copied back into memory and the session tier. Undecodable entries are
// deleted.
func (s *Store) Organization(ctx context.Context) (string, bool) {
	s.mu.RLock()
	org := s.organization
	s.mu.RUnlock()
	if org != "" {
		return org, true
	}

	if org, ok := s.load(ctx, s.session, domain.KeySessionOrganization); ok {
		s.remember(org)
		slog.Debug("Organization restored from session tier")
		return org, true
	}

	encoded, found, err := s.durable.Get(ctx, domain.KeyDurableOrganization)
	if err != nil {
		slog.Warn("Durable tier read failed", "key", domain.KeyDurableOrganization, "error", err)
		return "", false
	}
	if !found || encoded == "" {
		return "", false
	}
	org, err = Deobfuscate(encoded, s.key)
	if err != nil || org == "" {
		slog.Warn("Dropping corrupted organization entry", "tier", "durable", "error", err)
		_ = s.durable.Delete(ctx, domain.KeyDurableOrganization)
		return "", false
	}

	s.remember(org)
	if err := s.session.Set(ctx, domain.KeySessionOrganization, encoded); err != nil {
		slog.Warn("Session tier back-fill failed", "error", err)
	}
	slog.Debug("Organization restored from durable tier")
	return org, true
}

func (s *Store) load(ctx context.Context, tier storage.Tier, key string) (string, bool) {
	encoded, found, err := tier.Get(ctx, key)
	if err != nil {
		slog.Warn("Storage tier read failed", "key", key, "error", err)
		return "", false
	}
	if !found || encoded == "" {
		return "", false
	}
	org, err := Deobfuscate(encoded, s.key)
	if err != nil || org == "" {
		slog.Warn("Dropping corrupted organization entry", "key", key, "error", err)
		_ = tier.Delete(ctx, key)
		return "", false
	}
	return org, true
}

func (s *Store) remember(org string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.organization == "" {
		s.organization = org
	}
}

// ClearOrganization wipes the organization from memory and both tiers.
func (s *Store) ClearOrganization(ctx context.Context) error {
	s.mu.Lock()
	s.organization = ""
	s.mu.Unlock()

	return errors.Join(
		s.session.Delete(ctx, domain.KeySessionOrganization),
		s.durable.Delete(ctx, domain.KeyDurableOrganization),
	)
}

// SetLogin records a sign-in. Token, email and org id are stored in plain
// text in the durable tier; the organization goes through SetOrganization and
// is also persisted durably.
func (s *Store) SetLogin(ctx context.Context, l Login) error {
	plain := map[string]string{
		domain.KeyToken:        l.Token,
		domain.KeyRefreshToken: l.RefreshToken,
		domain.KeyUserEmail:    l.Email,
		domain.KeyCurrentOrgID: l.OrgID,
	}
	for k, v := range plain {
		if v == "" {
			continue
		}
		if err := s.durable.Set(ctx, k, v); err != nil {
			return fmt.Errorf("persist %s: %w", k, err)
		}
	}

	if l.Organization == "" {
		return nil
	}
	if err := s.SetOrganization(ctx, l.Organization); err != nil {
		return err
	}
	encoded, err := Obfuscate(l.Organization, s.key)
	if err != nil {
		return err
	}
	return s.durable.Set(ctx, domain.KeyDurableOrganization, encoded)
}

// Token returns the bearer token, preferring "token" over "access_token".
func (s *Store) Token(ctx context.Context) string {
	if v := s.plain(ctx, domain.KeyToken); v != "" {
		return v
	}
	return s.plain(ctx, domain.KeyAccessToken)
}

// Email returns the signed-in user's email.
func (s *Store) Email(ctx context.Context) string {
	return s.plain(ctx, domain.KeyUserEmail)
}

// OrgID returns the user's current organization id.
func (s *Store) OrgID(ctx context.Context) string {
	return s.plain(ctx, domain.KeyCurrentOrgID)
}

func (s *Store) plain(ctx context.Context, key string) string {
	v, _, err := s.durable.Get(ctx, key)
	if err != nil {
		slog.Warn("Durable tier read failed", "key", key, "error", err)
		return ""
	}
	return v
}

// ClearSession expires the auth cookies, drops the access and refresh tokens
// and clears the organization. It is the cleanup for a plain 401.
func (s *Store) ClearSession(ctx context.Context) error {
	if s.jar != nil {
		s.jar.Expire(domain.AuthCookies...)
	}
	return errors.Join(
		s.durable.Delete(ctx, domain.KeyAccessToken),
		s.durable.Delete(ctx, domain.KeyRefreshToken),
		s.ClearOrganization(ctx),
	)
}

// ClearTokens is the logout cleanup: ClearSession plus the token, email and
// org id entries.
func (s *Store) ClearTokens(ctx context.Context) error {
	err := errors.Join(
		s.ClearSession(ctx),
		s.durable.Delete(ctx, domain.KeyToken),
		s.durable.Delete(ctx, domain.KeyUserEmail),
		s.durable.Delete(ctx, domain.KeyCurrentOrgID),
	)
	slog.Info("Auth tokens and organization cleared")
	return err
}

// Wipe clears everything: tokens, cookies and both tiers in full.
func (s *Store) Wipe(ctx context.Context) error {
	err := errors.Join(
		s.ClearTokens(ctx),
		s.session.Clear(ctx),
		s.durable.Clear(ctx),
	)
	if s.jar != nil {
		s.jar.Reset()
	}
	return err
}

// SetAuthHeaders adds the organization, user and bearer headers for the
// current identity to h. Absent values are left unset.
func (s *Store) SetAuthHeaders(ctx context.Context, h http.Header) {
	if org, ok := s.Organization(ctx); ok {
		h.Set(domain.HeaderOrganizationDB, org)
	}
	if email := s.Email(ctx); email != "" {
		h.Set(domain.HeaderUserEmail, email)
	}
	if orgID := s.OrgID(ctx); orgID != "" {
		h.Set(domain.HeaderOrganizationID, orgID)
	}
	if token := s.Token(ctx); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}
