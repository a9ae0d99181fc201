package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/credential"
	"github.com/vietddude/intake/internal/metrics"
)

const (
	sessionExpiredCode    = "SESSION_EXPIRED"
	sessionExpiredMarker  = "Session expired due to inactivity"
	sessionExpiredNotice  = "Your session has expired due to inactivity. Please login again."
	subscriptionFallback  = "Subscription required to continue"
	authenticationFailure = "Authentication failed"
)

// Navigator moves the user to another surface of the application.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Notifier shows a message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// SessionGuard owns the global side effects of 401 and 402 responses.
type SessionGuard struct {
	creds     *credential.Store
	nav       Navigator
	notifier  Notifier
	bus       *Bus
	loginPath string
}

// NewSessionGuard creates a guard. nav, notifier and bus may be nil.
func NewSessionGuard(creds *credential.Store, nav Navigator, notifier Notifier, bus *Bus, loginPath string) *SessionGuard {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &SessionGuard{
		creds:     creds,
		nav:       nav,
		notifier:  notifier,
		bus:       bus,
		loginPath: loginPath,
	}
}

// IsExpiration reports whether a 401 body carries the inactivity marker.
func IsExpiration(body map[string]any) bool {
	if code, _ := body["code"].(string); code == sessionExpiredCode {
		return true
	}
	for _, key := range []string{"error", "message", "msg"} {
		if s, ok := body[key].(string); ok && strings.Contains(s, sessionExpiredMarker) {
			return true
		}
	}
	return false
}

// HandleExpiration wipes every credential, notifies the user and redirects
// to login when body marks an inactivity expiry. It returns false and does
// nothing for ordinary 401 bodies.
func (g *SessionGuard) HandleExpiration(ctx context.Context, body map[string]any) bool {
	if !IsExpiration(body) {
		return false
	}
	metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
	slog.Warn("Session expired due to inactivity, clearing credentials")

	if err := g.creds.Wipe(ctx); err != nil {
		slog.Error("Failed to clear credentials", "error", err)
	}
	if g.notifier != nil {
		g.notifier.Notify(sessionExpiredNotice)
	}
	g.redirect()
	return true
}

// HandleUnauthorized clears the session and redirects to login after a
// generic 401.
func (g *SessionGuard) HandleUnauthorized(ctx context.Context) {
	metrics.SessionEventsTotal.WithLabelValues("unauthorized").Inc()
	slog.Warn("Request unauthorized, redirecting to login")

	if err := g.creds.ClearSession(ctx); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	g.redirect()
}

// HandleSubscription publishes the upgrade event for a 402 and returns the
// error the caller receives.
func (g *SessionGuard) HandleSubscription(body map[string]any, resp *Response) *RequestError {
	metrics.SessionEventsTotal.WithLabelValues("subscription_required").Inc()

	ev := domain.NewSubscriptionEvent(body)
	if g.bus != nil {
		g.bus.Publish(ev)
	}

	status := http.StatusPaymentRequired
	if resp != nil {
		status = resp.StatusCode
	}
	msg := ev.Error
	if msg == "" {
		msg = subscriptionFallback
	}
	return &RequestError{
		Kind:        KindSubscriptionRequired,
		Status:      status,
		Message:     msg,
		UserMessage: msgSubscription,
		Body:        body,
		Response:    resp,
		Subscription: &SubscriptionDetails{
			SubscriptionRequired: ev.SubscriptionRequired,
			AccessDenied:         ev.AccessDenied,
			TrialExpired:         ev.TrialExpired,
			OriginalData:         body,
		},
	}
}

func (g *SessionGuard) redirect() {
	if g.nav == nil {
		slog.Info("No navigator configured, login redirect skipped", "path", g.loginPath)
		return
	}
	g.nav.Navigate(g.loginPath)
}
