package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
)

// PGAdvisoryLocker uses session-scoped pg_try_advisory_lock. Each held lock
// pins its own connection so unlock runs in the session that locked.
type PGAdvisoryLocker struct {
	db *sql.DB
}

func NewPGAdvisoryLocker(db *sql.DB) *PGAdvisoryLocker {
	return &PGAdvisoryLocker{db: db}
}

func advisoryID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

func (l *PGAdvisoryLocker) TryLock(ctx context.Context, key string) (Lock, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for lock: %w", err)
	}

	id := advisoryID(key)
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquire advisory lock %s: %w", key, err)
	}
	if !acquired {
		conn.Close()
		return nil, ErrNotAcquired
	}
	return &pgLock{conn: conn, id: id}, nil
}

type pgLock struct {
	conn *sql.Conn
	id   int64
}

// Extend checks the pinned session is still alive. Advisory locks live as
// long as the session, so there is no expiry to push out.
func (l *pgLock) Extend(ctx context.Context) error {
	if err := l.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("advisory lock session lost: %w", ErrNotAcquired)
	}
	return nil
}

func (l *pgLock) Release(ctx context.Context) error {
	defer l.conn.Close()
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.id); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}
	return nil
}
