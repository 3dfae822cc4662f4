package lock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_Exclusive(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()
	key := DispatchKey(uuid.MustParse("11111111-1111-1111-1111-111111111111"))

	held, err := locker.TryLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:dispatch:account:11111111-1111-1111-1111-111111111111"))
	assert.Greater(t, mr.TTL("lock:"+key), time.Duration(0))

	_, err = locker.TryLock(ctx, key)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, held.Release(ctx))
	assert.False(t, mr.Exists("lock:"+key))

	again, err := locker.TryLock(ctx, key)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_ReleaseDoesNotStealForeignLock(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	held, err := locker.TryLock(ctx, "k")
	require.NoError(t, err)

	// simulate expiry followed by another holder
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	require.NoError(t, held.Release(ctx))
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_ExtendResetsTTL(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	held, err := locker.TryLock(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(50 * time.Second)
	assert.Equal(t, 10*time.Second, mr.TTL("lock:k"))

	require.NoError(t, held.Extend(ctx))
	assert.Equal(t, time.Minute, mr.TTL("lock:k"))

	mr.FastForward(50 * time.Second)
	assert.True(t, mr.Exists("lock:k"))
	require.NoError(t, held.Release(ctx))
}

func TestRedisLocker_ExtendAfterLoss(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	held, err := locker.TryLock(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	assert.ErrorIs(t, held.Extend(ctx), ErrNotAcquired)
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
	assert.Equal(t, time.Duration(0), mr.TTL("lock:k"))
}

func TestPGAdvisoryLocker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := advisoryID("dispatch:account:x")
	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1\)`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	locker := NewPGAdvisoryLocker(db)
	held, err := locker.TryLock(context.Background(), "dispatch:account:x")
	require.NoError(t, err)
	require.NoError(t, held.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLocker_Held(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	_, err = NewPGAdvisoryLocker(db).TryLock(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	a, err := locker.TryLock(ctx, "k")
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)

	_, err = locker.TryLock(ctx, "other")
	assert.NoError(t, err)

	require.NoError(t, a.Extend(ctx))
	require.NoError(t, a.Release(ctx))
	require.NoError(t, a.Release(ctx))
	assert.ErrorIs(t, a.Extend(ctx), ErrNotAcquired)

	b, err := locker.TryLock(ctx, "k")
	assert.NoError(t, err)

	// a stale handle must not release the new holder
	require.NoError(t, a.Release(ctx))
	assert.NoError(t, b.Extend(ctx))
}

func TestNew_PicksBackend(t *testing.T) {
	_, client := newRedis(t)
	assert.IsType(t, &RedisLocker{}, New(client, nil, time.Minute))
	assert.IsType(t, &PGAdvisoryLocker{}, New(nil, nil, time.Minute))
}
