// Package worker holds background loops owned by the client context.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Recoverer restores a session after connectivity returns.
type Recoverer interface {
	Recover(ctx context.Context) bool
}

// SessionState reports whether a user is signed in.
type SessionState interface {
	Token(ctx context.Context) string
}

// StatusSource delivers online transitions. The returned function
// unsubscribes.
type StatusSource interface {
	OnOnline(fn func()) func()
}

// Revalidator checks the session whenever the backend becomes reachable
// again and, when it cannot be recovered, hands off to onExpired.
type Revalidator struct {
	source    StatusSource
	recoverer Recoverer
	session   SessionState
	onExpired func(ctx context.Context)
	interval  time.Duration
}

// NewRevalidator creates the worker. A positive interval also revalidates
// periodically while online.
func NewRevalidator(
	source StatusSource,
	recoverer Recoverer,
	session SessionState,
	onExpired func(ctx context.Context),
	interval time.Duration,
) *Revalidator {
	return &Revalidator{
		source:    source,
		recoverer: recoverer,
		session:   session,
		onExpired: onExpired,
		interval:  interval,
	}
}

// Start runs the loop until ctx is cancelled.
func (r *Revalidator) Start(ctx context.Context) {
	wake := make(chan struct{}, 1)
	unsubscribe := r.source.OnOnline(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			r.revalidate(ctx)
		case <-tick:
			r.revalidate(ctx)
		}
	}
}

func (r *Revalidator) revalidate(ctx context.Context) {
	if r.session.Token(ctx) == "" {
		return
	}
	if r.recoverer.Recover(ctx) {
		slog.Debug("Session revalidated")
		return
	}
	if ctx.Err() != nil {
		return
	}
	slog.Warn("Session could not be recovered")
	if r.onExpired != nil {
		r.onExpired(ctx)
	}
}
