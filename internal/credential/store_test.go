package credential

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/infra/storage/memory"
)

const testKey = "unit-test-key"

func newTestStore(t *testing.T) (*Store, *memory.Tier, *memory.Tier) {
	t.Helper()
	session := memory.NewTier()
	durable := memory.NewTier()
	jar, err := NewJar("http://api.example.com")
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	return NewStore(session, durable, testKey, jar), session, durable
}

func TestObfuscate_RoundTrip(t *testing.T) {
	key := []byte(testKey)
	for _, in := range []string{"", "clinic_db", "ünïcödé-org", "a much longer organization identifier than the key itself"} {
		enc, err := Obfuscate(in, key)
		if err != nil {
			t.Fatalf("Obfuscate(%q): %v", in, err)
		}
		if in != "" && enc == in {
			t.Errorf("expected %q to be transformed", in)
		}
		out, err := Deobfuscate(enc, key)
		if err != nil {
			t.Fatalf("Deobfuscate(%q): %v", enc, err)
		}
		if out != in {
			t.Errorf("round trip = %q, want %q", out, in)
		}
	}
}

func TestObfuscate_EmptyKey(t *testing.T) {
	if _, err := Obfuscate("x", nil); err != ErrEmptyKey {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestStore_SetPersistsObfuscatedToSession(t *testing.T) {
	ctx := context.Background()
	s, session, durable := newTestStore(t)

	if err := s.SetOrganization(ctx, "clinic_db"); err != nil {
		t.Fatalf("SetOrganization: %v", err)
	}
	// idempotent
	if err := s.SetOrganization(ctx, "clinic_db"); err != nil {
		t.Fatalf("second SetOrganization: %v", err)
	}

	raw, ok, _ := session.Get(ctx, domain.KeySessionOrganization)
	if !ok || raw == "clinic_db" {
		t.Fatalf("expected obfuscated session entry, got %q (present=%v)", raw, ok)
	}
	if durable.Len() != 0 {
		t.Errorf("SetOrganization must not touch the durable tier")
	}

	org, ok := s.Organization(ctx)
	if !ok || org != "clinic_db" {
		t.Errorf("Organization = (%q, %v)", org, ok)
	}
}

func TestStore_ColdStartFromDurableBackfillsSession(t *testing.T) {
	ctx := context.Background()
	s, session, durable := newTestStore(t)

	enc, _ := Obfuscate("remote_org", []byte(testKey))
	_ = durable.Set(ctx, domain.KeyDurableOrganization, enc)

	org, ok := s.Organization(ctx)
	if !ok || org != "remote_org" {
		t.Fatalf("Organization = (%q, %v), want remote_org", org, ok)
	}
	if got, _, _ := session.Get(ctx, domain.KeySessionOrganization); got != enc {
		t.Errorf("expected session tier back-filled with %q, got %q", enc, got)
	}

	// memory is now authoritative even if storage changes underneath
	_ = durable.Clear(ctx)
	_ = session.Clear(ctx)
	if org, ok := s.Organization(ctx); !ok || org != "remote_org" {
		t.Errorf("expected memory value to win, got (%q, %v)", org, ok)
	}
}

func TestStore_SessionTierPreferredOverDurable(t *testing.T) {
	ctx := context.Background()
	s, session, durable := newTestStore(t)

	sess, _ := Obfuscate("session_org", []byte(testKey))
	dur, _ := Obfuscate("durable_org", []byte(testKey))
	_ = session.Set(ctx, domain.KeySessionOrganization, sess)
	_ = durable.Set(ctx, domain.KeyDurableOrganization, dur)

	if org, _ := s.Organization(ctx); org != "session_org" {
		t.Errorf("expected session_org, got %q", org)
	}
}

func TestStore_CorruptedEntriesAreDeleted(t *testing.T) {
	ctx := context.Background()
	s, session, durable := newTestStore(t)

	_ = session.Set(ctx, domain.KeySessionOrganization, "%%% not base64 %%%")
	_ = durable.Set(ctx, domain.KeyDurableOrganization, "also@@broken")

	if org, ok := s.Organization(ctx); ok {
		t.Fatalf("expected no organization, got %q", org)
	}
	if _, ok, _ := session.Get(ctx, domain.KeySessionOrganization); ok {
		t.Error("expected corrupted session entry to be deleted")
	}
	if _, ok, _ := durable.Get(ctx, domain.KeyDurableOrganization); ok {
		t.Error("expected corrupted durable entry to be deleted")
	}
}

func TestStore_ClearOrganization(t *testing.T) {
	ctx := context.Background()
	s, session, durable := newTestStore(t)

	_ = s.SetLogin(ctx, Login{Organization: "org"})
	if err := s.ClearOrganization(ctx); err != nil {
		t.Fatalf("ClearOrganization: %v", err)
	}
	if _, ok := s.Organization(ctx); ok {
		t.Error("expected organization to be cleared")
	}
	if session.Len() != 0 {
		t.Errorf("expected empty session tier, got %d keys", session.Len())
	}
	if _, ok, _ := durable.Get(ctx, domain.KeyDurableOrganization); ok {
		t.Error("expected durable organization to be removed")
	}
}

func TestStore_LoginAccessors(t *testing.T) {
	ctx := context.Background()
	s, _, durable := newTestStore(t)

	if err := s.SetLogin(ctx, Login{Token: "tok", Email: "doc@example.com", OrgID: "7"}); err != nil {
		t.Fatalf("SetLogin: %v", err)
	}
	if s.Token(ctx) != "tok" || s.Email(ctx) != "doc@example.com" || s.OrgID(ctx) != "7" {
		t.Errorf("unexpected accessors: %q %q %q", s.Token(ctx), s.Email(ctx), s.OrgID(ctx))
	}

	_ = durable.Delete(ctx, domain.KeyToken)
	_ = durable.Set(ctx, domain.KeyAccessToken, "legacy")
	if s.Token(ctx) != "legacy" {
		t.Errorf("expected access_token fallback, got %q", s.Token(ctx))
	}
}

func TestStore_ClearSessionKeepsEmail(t *testing.T) {
	ctx := context.Background()
	s, _, durable := newTestStore(t)

	_ = s.SetLogin(ctx, Login{Email: "doc@example.com", Organization: "org"})
	_ = durable.Set(ctx, domain.KeyAccessToken, "a")
	_ = durable.Set(ctx, domain.KeyRefreshToken, "r")

	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, ok, _ := durable.Get(ctx, domain.KeyAccessToken); ok {
		t.Error("expected access_token removed")
	}
	if _, ok := s.Organization(ctx); ok {
		t.Error("expected organization cleared")
	}
	if s.Email(ctx) != "doc@example.com" {
		t.Error("plain 401 cleanup must keep the user email")
	}
}

func TestStore_WipeClearsEverything(t *testing.T) {
	ctx := context.Background()
	s, session, durable := newTestStore(t)

	u, _ := url.Parse("http://api.example.com/")
	s.Jar().SetCookies(u, []*http.Cookie{{Name: "access_token", Value: "c", Path: "/"}, {Name: "other", Value: "x", Path: "/"}})
	_ = s.SetLogin(ctx, Login{Token: "t", Email: "e", OrgID: "1", Organization: "org"})
	_ = durable.Set(ctx, domain.KeyTourCompletedPrefix+"intro", "true")

	if err := s.Wipe(ctx); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if session.Len() != 0 || durable.Len() != 0 {
		t.Errorf("expected empty tiers, got session=%d durable=%d", session.Len(), durable.Len())
	}
	if cookies := s.Jar().Cookies(u); len(cookies) != 0 {
		t.Errorf("expected no cookies, got %v", cookies)
	}
}

func TestJar_ExpireAuthCookies(t *testing.T) {
	jar, err := NewJar("http://api.example.com")
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	u, _ := url.Parse("http://api.example.com/api/patients")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "access_token", Value: "a", Path: "/"},
		{Name: "refresh_token", Value: "r", Path: "/"},
		{Name: "theme", Value: "dark", Path: "/"},
	})

	jar.Expire(domain.AuthCookies...)

	cookies := jar.Cookies(u)
	if len(cookies) != 1 || cookies[0].Name != "theme" {
		t.Errorf("expected only theme cookie to remain, got %v", cookies)
	}
}
