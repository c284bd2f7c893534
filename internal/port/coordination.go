package port

import (
	"context"
	"time"
)

// ReleaseFunc gives up a lock obtained from Locker.Acquire.
type ReleaseFunc func(ctx context.Context) error

type Locker interface {
	// Acquire blocks until the named lock is held or ctx is done
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
