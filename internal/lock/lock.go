// Package lock serializes dispatch work per account across server instances.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the key is held by someone else.
var ErrNotAcquired = errors.New("lock is held elsewhere")

// Lock is a held lock. Release must be called exactly once.
type Lock interface {
	// Extend pushes the expiry out by the locker's TTL. It returns
	// ErrNotAcquired when the lock has already been lost.
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
}

// Locker acquires non-blocking, exclusive locks by key.
type Locker interface {
	TryLock(ctx context.Context, key string) (Lock, error)
}

// DispatchKey is the lock key serializing dispatch for one account.
func DispatchKey(accountID uuid.UUID) string {
	return fmt.Sprintf("dispatch:account:%s", accountID)
}

// New picks Redis when a client is given, Postgres advisory locks otherwise.
func New(client *redis.Client, db *sql.DB, ttl time.Duration) Locker {
	if client != nil {
		return NewRedisLocker(client, ttl)
	}
	return NewPGAdvisoryLocker(db)
}
