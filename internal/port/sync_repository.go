package port

import (
	"context"
	"time"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

type SyncLock interface {
	// Acquire takes the lock for key, returns false if another holder has it
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release drops the lock only if token still owns it
	Release(ctx context.Context, key, token string) error
}

type SyncRecorder interface {
	// RecordSyncRun persists the outcome of one sync pass
	RecordSyncRun(ctx context.Context, run domain.SyncRun) error

	// ListSyncRuns returns the latest runs for an account, newest first
	ListSyncRuns(ctx context.Context, marketplace, account string, limit int) ([]domain.SyncRun, error)
}
