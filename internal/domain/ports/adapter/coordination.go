package adapter

import (
	"context"
	"time"
)

// Locker is a best-effort distributed mutex keyed by name.
type Locker interface {
	// TryLock returns domain.ErrLockNotAcquired when another holder owns key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter counts hits per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
