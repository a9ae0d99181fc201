package storage

import (
	"context"
)

// Tier is a string key-value persistence layer. The client keeps two of them:
// a session-scoped tier that dies with the process and a durable tier that
// survives restarts.
type Tier interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key held by the tier.
	Clear(ctx context.Context) error
}
