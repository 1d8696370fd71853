package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestAcquire_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, "sync-lock:test:acquire")

	// Test
	token, ok, err := adapter.Acquire(ctx, "sync-lock:test:acquire", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || token == "" {
		t.Fatal("expected lock to be acquired")
	}

	// Verify
	stored, _ := client.Get(ctx, "sync-lock:test:acquire").Result()
	if stored != token {
		t.Errorf("expected token %q, got %q", token, stored)
	}
	if ttl := client.PTTL(ctx, "sync-lock:test:acquire").Val(); ttl <= 0 {
		t.Errorf("expected a ttl, got %v", ttl)
	}

	client.Del(ctx, "sync-lock:test:acquire")
}

func TestAcquire_AlreadyHeld(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, "sync-lock:test:held")
	_, _, _ = adapter.Acquire(ctx, "sync-lock:test:held", time.Minute)

	// Test
	_, ok, err := adapter.Acquire(ctx, "sync-lock:test:held", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second acquire to fail")
	}

	client.Del(ctx, "sync-lock:test:held")
}

func TestRelease_OnlyWithOwnToken(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, "sync-lock:test:release")
	token, _, _ := adapter.Acquire(ctx, "sync-lock:test:release", time.Minute)

	// Test - a stale token must not free the lock
	if err := adapter.Release(ctx, "sync-lock:test:release", "not-the-owner"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := client.Exists(ctx, "sync-lock:test:release").Val(); n != 1 {
		t.Fatal("lock released by a foreign token")
	}

	if err := adapter.Release(ctx, "sync-lock:test:release", token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify
	if n := client.Exists(ctx, "sync-lock:test:release").Val(); n != 0 {
		t.Error("expected lock to be released")
	}
}

func TestAcquire_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	totalRequests := 50

	// Setup
	client.Del(ctx, "sync-lock:test:concurrent")

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := adapter.Acquire(ctx, "sync-lock:test:concurrent", time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 holder, got %d", successCount.Load())
	}

	client.Del(ctx, "sync-lock:test:concurrent")
}
