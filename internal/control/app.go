// Package control wires the client together: it builds every component
// once from configuration and owns their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/vietddude/intake/internal/api"
	"github.com/vietddude/intake/internal/billing"
	"github.com/vietddude/intake/internal/connection"
	"github.com/vietddude/intake/internal/core/config"
	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/core/worker"
	"github.com/vietddude/intake/internal/credential"
	"github.com/vietddude/intake/internal/fetch"
	"github.com/vietddude/intake/internal/infra/storage"
	"github.com/vietddude/intake/internal/infra/storage/memory"
	redisstore "github.com/vietddude/intake/internal/infra/storage/redis"
	"github.com/vietddude/intake/internal/infra/transport"
)

// Options are the host-provided hooks the client cannot build itself.
type Options struct {
	Navigator fetch.Navigator
	Notifier  fetch.Notifier

	// Durable overrides the configured durable tier and is treated as
	// persistent.
	Durable storage.Tier
}

// ErrEphemeralStorage is returned by RequireDurable when credentials would
// not outlive the process.
var ErrEphemeralStorage = errors.New("no durable storage configured: set redis.url to keep credentials between runs")

// App is the client context: one per process, created at bootstrap and
// reset on logout.
type App struct {
	cfg *config.AppConfig

	Session    storage.Tier
	Durable    storage.Tier
	Jar        *credential.Jar
	Store      *credential.Store
	Transport  *transport.HTTP
	Connection *connection.Monitor
	Bus        *fetch.Bus
	Guard      *fetch.SessionGuard
	Executor   *fetch.Executor
	Client     *fetch.Client

	Recoverer     *api.Recoverer
	Subscriptions *api.Subscriptions
	Tours         *api.Tours
	Uploads       *api.Uploads
	Billing       billing.Calculator

	redis       *redisstore.Tier
	health      *HealthServer
	revalidator *worker.Revalidator
	persistent  bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp creates the client context from cfg.
func NewApp(cfg *config.AppConfig, opts Options) (*App, error) {
	baseURL := strings.TrimRight(cfg.BaseURL(), "/")
	app := &App{cfg: cfg, Session: memory.NewTier()}

	switch {
	case opts.Durable != nil:
		app.Durable = opts.Durable
		app.persistent = true
	case cfg.Redis.URL != "":
		tier, err := redisstore.NewTier(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init durable storage: %w", err)
		}
		app.redis = tier
		app.Durable = tier
		app.persistent = true
		slog.Info("Using Redis durable storage")
	default:
		app.Durable = memory.NewTier()
		slog.Info("Using memory durable storage")
	}

	jar, err := credential.NewJar(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init cookie jar: %w", err)
	}
	app.Jar = jar
	app.Store = credential.NewStore(app.Session, app.Durable, cfg.Credentials.ObfuscationKey, jar)
	app.Transport = transport.NewHTTP(jar)
	app.Connection = connection.NewMonitor(app.Transport, baseURL+cfg.API.HealthPath, cfg.API.HealthTimeout)

	app.Bus = fetch.NewBus()
	app.Guard = fetch.NewSessionGuard(app.Store, opts.Navigator, opts.Notifier, app.Bus, cfg.API.LoginPath)
	app.Executor = fetch.NewExecutor(baseURL, RetryConfig(cfg), app.Transport, app.Connection, app.Store, app.Guard,
		fetch.WithOTPPaths(cfg.API.OTPPaths...))
	app.Client = fetch.NewClient(app.Executor, app.Guard)

	app.Recoverer = api.NewRecoverer(baseURL, app.Transport, app.Store)
	app.Subscriptions = api.NewSubscriptions(app.Client)
	app.Tours = api.NewTours(app.Client, app.Store, app.Durable)
	app.Uploads = api.NewUploads(app.Client)
	app.Billing = billing.Calculator{
		BasePrice: cfg.Billing.BasePrice,
		Currency:  cfg.Billing.Currency,
		CycleDays: cfg.Billing.CycleDays,
	}

	app.revalidator = worker.NewRevalidator(app.Connection, app.Recoverer, app.Store,
		app.Guard.HandleUnauthorized, cfg.Connection.RevalidateInterval)

	if cfg.Server.Port > 0 {
		app.health = NewHealthServer(app.Connection, app.Transport.Monitor, cfg.Server.Port)
	}

	slog.Info("Client initialized",
		"environment", string(cfg.Environment),
		"base_url", baseURL,
		"max_retries", cfg.Retry.MaxRetries,
	)
	return app, nil
}

// RetryConfig converts the YAML retry section.
func RetryConfig(cfg *config.AppConfig) fetch.RetryConfig {
	return fetch.RetryConfig{
		MaxRetries:        cfg.Retry.MaxRetries,
		BaseDelay:         cfg.Retry.BaseDelay,
		MaxDelay:          cfg.Retry.MaxDelay,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		UploadTimeout:     cfg.Retry.UploadTimeout,
		APITimeout:        cfg.Retry.APITimeout,
	}
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.AppConfig {
	return a.cfg
}

// Start launches the connectivity probe, session revalidation and the
// health server.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return errors.New("app already started")
	}
	ctx, a.cancel = context.WithCancel(ctx)

	if interval := a.cfg.Connection.ProbeInterval; interval > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Connection.Run(ctx, interval)
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.revalidator.Start(ctx)
	}()

	if a.health != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.health.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Health server failed", "error", err)
			}
		}()
		slog.Info("Health server listening", "port", a.cfg.Server.Port)
	}
	return nil
}

// Stop shuts down background work and releases connections.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	var errs []error
	if a.health != nil && cancel != nil {
		errs = append(errs, a.health.Stop(ctx))
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	errs = append(errs, a.Transport.Close())
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

// RequireDurable fails with ErrEphemeralStorage when the durable tier lives
// only in this process.
func (a *App) RequireDurable() error {
	if !a.persistent {
		return ErrEphemeralStorage
	}
	return nil
}

// Login records a successful sign-in and points tours at the user.
func (a *App) Login(ctx context.Context, l credential.Login) error {
	if err := a.Store.SetLogin(ctx, l); err != nil {
		return err
	}
	a.Tours.SetUser(l.Email)
	return nil
}

// Logout clears tokens, cookies and the organization and forgets the tour
// user.
func (a *App) Logout(ctx context.Context) error {
	a.Tours.Reset()
	return a.Store.ClearTokens(ctx)
}

// Reset wipes every credential and both storage tiers.
func (a *App) Reset(ctx context.Context) error {
	a.Tours.Reset()
	return a.Store.Wipe(ctx)
}

// OnSubscriptionRequired registers a handler for 402 upgrade prompts.
func (a *App) OnSubscriptionRequired(fn func(domain.SubscriptionEvent)) func() {
	return a.Bus.Subscribe(fn)
}
