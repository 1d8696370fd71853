package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/inventory-sync/internal/adapter/marketplace"
	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/core/service"
)

type testEnv struct {
	lock     *RedisAdapter
	recorder *MySQLAdapter
	factory  *marketplace.Factory
	cleanup  func()
}

func setupTestEnv(t *testing.T) *testEnv {
	rdb := getRedisClient(t)
	db := getMySQLDB(t)

	factory, err := marketplace.NewFactory(marketplace.FactoryConfig{
		EbayDeveloper: marketplace.EbayDeveloperCredentials{ClientID: "it", ClientSecret: "it"},
		EnableMemory:  true,
	}, nil, nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	return &testEnv{
		lock:     NewRedisAdapter(rdb),
		recorder: NewMySQLAdapter(db),
		factory:  factory,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func newMemoryConfig(t *testing.T, account string) domain.MarketplaceConfig {
	cfg, err := domain.NewMarketplaceConfig(domain.MarketplaceConfig{
		Marketplace:  marketplace.Memory,
		Account:      account,
		RefreshToken: "tok",
		Thresholds:   domain.DefaultThresholds(),
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestIntegration_SyncIsLockedAndRecorded(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	account := "it-" + uuid.NewString()[:8]
	cfg := newMemoryConfig(t, account)

	mp := env.factory.Memory().Account(account)
	mp.SetLatency(100 * time.Millisecond)
	mp.Seed(
		domain.Listing{SKU: "SKU-1", ConditionID: "NEW", MarketplaceQty: 0},
		domain.Listing{SKU: "SKU-2", ConditionID: "USED", MarketplaceQty: 3},
	)

	snapshot, err := domain.AggregateSnapshot([]domain.InventoryRecord{
		{ConditionID: "NEW", Quantity: 4},
		{ConditionID: "USED", Quantity: 3},
	}, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	runner := service.NewSyncRunner(env.lock, env.recorder, time.Minute, nil)

	var successCount, busyCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := service.NewSyncInventoryService(domain.NewMarketplacePolicy(cfg), cfg, env.factory)
			_, err := runner.Run(ctx, svc, snapshot)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrSyncInProgress):
				busyCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 || busyCount.Load() != 9 {
		t.Errorf("expected 1 success and 9 busy, got %d/%d", successCount.Load(), busyCount.Load())
	}
	if calls := mp.UpdateCalls(); calls != 1 {
		t.Errorf("expected 1 update batch, got %d", calls)
	}

	runs, err := env.recorder.ListSyncRuns(ctx, marketplace.Memory, account, 10)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].UpdateCount != 1 || runs[0].Status != domain.SyncRunStatusSucceeded {
		t.Errorf("unexpected run: %+v", runs[0])
	}

	// lock was released, a second run goes through and finds nothing to do
	svc := service.NewSyncInventoryService(domain.NewMarketplacePolicy(cfg), cfg, env.factory)
	result, err := runner.Run(ctx, svc, snapshot)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(result.Updates) != 0 {
		t.Errorf("expected no updates, got %d", len(result.Updates))
	}
}

func TestIntegration_FailedSyncIsRecorded(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	account := "it-" + uuid.NewString()[:8]
	cfg := newMemoryConfig(t, account)
	cfg.Marketplace = "etsy"

	runner := service.NewSyncRunner(env.lock, env.recorder, time.Minute, nil)
	svc := service.NewSyncInventoryService(domain.NewMarketplacePolicy(cfg), cfg, env.factory)

	_, err := runner.Run(ctx, svc, domain.NewInventorySnapshot(nil))
	if !errors.Is(err, marketplace.ErrUnsupportedMarketplace) {
		t.Fatalf("expected ErrUnsupportedMarketplace, got %v", err)
	}

	runs, err := env.recorder.ListSyncRuns(ctx, "etsy", account, 10)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != domain.SyncRunStatusFailed || runs[0].Error == "" {
		t.Errorf("expected one failed run, got %+v", runs)
	}
}
