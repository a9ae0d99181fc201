package fetch

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/intake/internal/credential"
	"github.com/vietddude/intake/internal/infra/storage/memory"
	"github.com/vietddude/intake/internal/infra/transport"
)

type harness struct {
	store   *credential.Store
	session *memory.Tier
	durable *memory.Tier
	bus     *Bus
	guard   *SessionGuard
	online  atomic.Bool

	mu      sync.Mutex
	navs    []string
	notices []string
	sleeps  []time.Duration
}

func (h *harness) IsOnline() bool { return h.online.Load() }

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		session: memory.NewTier(),
		durable: memory.NewTier(),
		bus:     NewBus(),
	}
	h.online.Store(true)
	h.store = credential.NewStore(h.session, h.durable, "test-key", nil)
	h.guard = NewSessionGuard(
		h.store,
		NavigatorFunc(func(path string) {
			h.mu.Lock()
			h.navs = append(h.navs, path)
			h.mu.Unlock()
		}),
		NotifierFunc(func(msg string) {
			h.mu.Lock()
			h.notices = append(h.notices, msg)
			h.mu.Unlock()
		}),
		h.bus,
		"/login",
	)
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	err := h.store.SetLogin(context.Background(), credential.Login{
		Token:        "tok-123",
		RefreshToken: "refresh-123",
		Email:        "dr@example.com",
		OrgID:        "7",
		Organization: "clinic_db",
	})
	if err != nil {
		t.Fatalf("SetLogin: %v", err)
	}
}

func (h *harness) executor(baseURL string, cfg RetryConfig, doer transport.Doer) *Executor {
	if doer == nil {
		doer = http.DefaultClient
	}
	return NewExecutor(baseURL, cfg, doer, h, h.store, h.guard,
		WithJitter(func() float64 { return 0 }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			h.mu.Lock()
			h.sleeps = append(h.sleeps, d)
			h.mu.Unlock()
			return nil
		}),
	)
}

func (h *harness) client(baseURL string, cfg RetryConfig) *Client {
	return NewClient(h.executor(baseURL, cfg, nil), h.guard)
}

type countingDoer struct {
	calls atomic.Int32
	err   error
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, d.err
}

func testConfig() RetryConfig {
	cfg := DefaultRetryConfig
	cfg.APITimeout = 2 * time.Second
	cfg.UploadTimeout = 2 * time.Second
	return cfg
}
