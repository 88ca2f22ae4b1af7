package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to a run across processes sharing
// one checkpoint backend.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The lock expires after ttl if the returned UnlockFunc is never called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
