// Package lock provides the advisory transaction lock. It is cooperative and
// try-once: a failed acquisition never blocks the webhook response, it just
// tells the provider to redeliver later.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TryLocker is a pluggable try-acquire/release capability keyed by
// transaction id, so a distributed lock service can be substituted without
// touching recorder logic.
type TryLocker interface {
	// TryLock attempts to acquire the lock without blocking. ok=false
	// means another holder owns the key. The returned token is required
	// to release.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the lock if token still owns it. Releasing an expired
	// or foreign lock is a no-op.
	Release(ctx context.Context, key, token string) error
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is the in-process implementation, sufficient for
// single-instance deployments and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryEntry)}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.locks[key]; ok && entry.expiresAt.After(now) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.locks[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[key]; ok && entry.token == token {
		delete(l.locks, key)
	}
	return nil
}
