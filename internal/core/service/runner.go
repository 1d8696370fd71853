package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/observability"
	"github.com/rl1809/inventory-sync/internal/port"
)

var ErrSyncInProgress = errors.New("sync already in progress for account")

const (
	defaultLockTTL = 2 * time.Minute
	lockKeyPrefix  = "sync-lock:"
	recordTimeout  = 5 * time.Second
)

// Syncer is the part of SyncInventoryService the runner needs.
type Syncer interface {
	Config() domain.MarketplaceConfig
	Sync(ctx context.Context, snapshot *domain.InventorySnapshot) ([]domain.ListingQuantityUpdate, error)
}

// RunResult is the outcome of one guarded sync.
type RunResult struct {
	RunID   string
	Updates []domain.ListingQuantityUpdate
}

// SyncRunner serializes syncs per account and records their outcome. Lock
// and recorder are both optional.
type SyncRunner struct {
	lock     port.SyncLock
	recorder port.SyncRecorder
	lockTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewSyncRunner(lock port.SyncLock, recorder port.SyncRecorder, lockTTL time.Duration, logger *zap.Logger) *SyncRunner {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &SyncRunner{
		lock:     lock,
		recorder: recorder,
		lockTTL:  lockTTL,
		logger:   observability.OrNop(logger),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (r *SyncRunner) Recorder() port.SyncRecorder { return r.recorder }

func (r *SyncRunner) Run(ctx context.Context, syncer Syncer, snapshot *domain.InventorySnapshot) (RunResult, error) {
	cfg := syncer.Config()
	runID := r.newID()
	logger := r.logger.With(
		zap.String("run_id", runID),
		zap.String("marketplace", cfg.Marketplace),
		zap.String("account", cfg.Account),
	)

	if r.lock != nil {
		key := lockKey(cfg)
		token, ok, err := r.lock.Acquire(ctx, key, r.lockTTL)
		if err != nil {
			return RunResult{RunID: runID}, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !ok {
			logger.Warn("sync_lock_busy")
			return RunResult{RunID: runID}, ErrSyncInProgress
		}
		defer func() {
			// the request context may already be cancelled
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
			defer cancel()
			if err := r.lock.Release(relCtx, key, token); err != nil {
				logger.Error("sync_lock_release_failed", zap.Error(err))
			}
		}()
	}

	run := domain.SyncRun{
		ID:          runID,
		Marketplace: cfg.Marketplace,
		Account:     cfg.Account,
		StartedAt:   r.now().UTC(),
	}

	updates, err := syncer.Sync(ctx, snapshot)

	run.FinishedAt = r.now().UTC()
	run.UpdateCount = len(updates)
	run.Status = domain.SyncRunStatusSucceeded
	if err != nil {
		run.Status = domain.SyncRunStatusFailed
		run.Error = err.Error()
	}
	r.record(ctx, logger, run)

	return RunResult{RunID: runID, Updates: updates}, err
}

func (r *SyncRunner) record(ctx context.Context, logger *zap.Logger, run domain.SyncRun) {
	if r.recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := r.recorder.RecordSyncRun(recCtx, run); err != nil {
		logger.Error("sync_run_record_failed", zap.Error(err))
	}
}

func lockKey(cfg domain.MarketplaceConfig) string {
	return lockKeyPrefix + cfg.Marketplace + ":" + cfg.Account
}
