package lock

import (
	"context"
	"sync"
)

// MemoryLocker is an in-process Locker for single-instance runs and tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]*memoryLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]*memoryLock)}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrNotAcquired
	}
	held := &memoryLock{owner: l, key: key}
	l.held[key] = held
	return held, nil
}

type memoryLock struct {
	owner *MemoryLocker
	key   string
	once  sync.Once
}

// Extend is a no-op while the lock is held; memory locks do not expire.
func (l *memoryLock) Extend(ctx context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if l.owner.held[l.key] != l {
		return ErrNotAcquired
	}
	return nil
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		if l.owner.held[l.key] == l {
			delete(l.owner.held, l.key)
		}
		l.owner.mu.Unlock()
	})
	return nil
}
