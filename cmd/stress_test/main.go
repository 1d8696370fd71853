package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-sync/internal/adapter/marketplace"
	"github.com/rl1809/inventory-sync/internal/adapter/storage"
	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/core/service"
)

const (
	account       = "stress-account"
	listingCount  = 200
	totalRequests = 50
	portLatency   = 200 * time.Millisecond
)

func main() {
	ctx := context.Background()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "sync-lock:"+marketplace.Memory+":"+account)

	factory, err := marketplace.NewFactory(marketplace.FactoryConfig{
		EbayDeveloper: marketplace.EbayDeveloperCredentials{ClientID: "stress", ClientSecret: "stress"},
		EnableMemory:  true,
	}, nil, nil)
	if err != nil {
		log.Fatalf("failed to build factory: %v", err)
	}

	// Seed the in-memory marketplace; every listing is out of sync
	mp := factory.Memory().Account(account)
	mp.SetLatency(portLatency)
	records := make([]domain.InventoryRecord, 0, listingCount)
	for i := 0; i < listingCount; i++ {
		cond := fmt.Sprintf("COND-%d", i)
		mp.Seed(domain.Listing{SKU: fmt.Sprintf("SKU-%d", i), ConditionID: cond, MarketplaceQty: 0})
		records = append(records, domain.InventoryRecord{ConditionID: cond, Quantity: i%7 + 1})
	}

	snapshot, err := domain.AggregateSnapshot(records, nil)
	if err != nil {
		log.Fatalf("failed to build snapshot: %v", err)
	}

	cfg, err := domain.NewMarketplaceConfig(domain.MarketplaceConfig{
		Marketplace:  marketplace.Memory,
		Account:      account,
		RefreshToken: "stress",
		Thresholds:   domain.DefaultThresholds(),
	})
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	runner := service.NewSyncRunner(storage.NewRedisAdapter(rdb), nil, time.Minute, nil)

	// Counters
	var successCount atomic.Int32
	var busyCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent syncs for the same account
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			svc := service.NewSyncInventoryService(domain.NewMarketplacePolicy(cfg), cfg, factory)
			_, err := runner.Run(ctx, svc, snapshot)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrSyncInProgress):
				busyCount.Add(1)
			default:
				failCount.Add(1)
				log.Printf("sync failed: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	busy := busyCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Listings:         %d\n", listingCount)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected (busy):  %d\n", busy)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == 1 && busy == int32(totalRequests-1) {
		fmt.Printf("PASS: Exactly 1 sync ran, %d rejected\n", totalRequests-1)
	} else {
		fmt.Printf("FAIL: Expected 1 success/%d busy, got %d/%d (failed %d)\n",
			totalRequests-1, success, busy, fail)
	}

	if calls := mp.UpdateCalls(); calls == 1 {
		fmt.Println("PASS: Marketplace received a single update batch")
	} else {
		fmt.Printf("FAIL: Expected 1 update batch, got %d\n", calls)
	}

	// A second pass finds everything in sync
	svc := service.NewSyncInventoryService(domain.NewMarketplacePolicy(cfg), cfg, factory)
	result, err := runner.Run(ctx, svc, snapshot)
	if err == nil && len(result.Updates) == 0 {
		fmt.Println("PASS: Follow-up sync produced no updates")
	} else {
		fmt.Printf("FAIL: Follow-up sync returned %d updates, err=%v\n", len(result.Updates), err)
	}
}
