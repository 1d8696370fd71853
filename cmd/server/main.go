package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-sync/internal/adapter/handler"
	"github.com/rl1809/inventory-sync/internal/adapter/marketplace"
	"github.com/rl1809/inventory-sync/internal/adapter/storage"
	"github.com/rl1809/inventory-sync/internal/config"
	"github.com/rl1809/inventory-sync/internal/core/service"
	"github.com/rl1809/inventory-sync/internal/observability"
	"github.com/rl1809/inventory-sync/internal/port"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server_exit", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, config.ServiceVersion, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Error("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewSyncMetrics(reg)
	if err != nil {
		return err
	}

	// Redis backs the per-account sync lock
	var lock port.SyncLock
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 20})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		lock = storage.NewRedisAdapter(rdb)
		logger.Info("redis_connected", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("sync_lock_disabled")
	}

	// MySQL keeps the sync run history
	var recorder port.SyncRecorder
	if cfg.MySQLDSN != "" {
		dsn, err := storage.NormalizeDSN(cfg.MySQLDSN)
		if err != nil {
			return err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := storage.Migrate(ctx, db); err != nil {
			return err
		}
		recorder = storage.NewMySQLAdapter(db)
		logger.Info("mysql_connected")
	} else {
		logger.Warn("sync_run_history_disabled")
	}

	factory, err := marketplace.NewFactory(marketplace.FactoryConfig{
		EbayBaseURL: cfg.EbayBaseURL,
		EbayDeveloper: marketplace.EbayDeveloperCredentials{
			ClientID:     cfg.EbayClientID,
			ClientSecret: cfg.EbayClientSecret,
		},
		AmazonBaseURL:       cfg.AmazonBaseURL,
		AmazonMarketplaceID: cfg.AmazonMarketplaceID,
		HTTPTimeout:         cfg.MarketplaceTimeout,
	}, nil, logger)
	if err != nil {
		return err
	}

	runner := service.NewSyncRunner(lock, recorder, cfg.SyncLockTTL, logger)

	// gRPC health server
	grpcServer := grpc.NewServer()
	grpcHandler := handler.NewGRPCHandler()
	grpcHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("grpc_server_start", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc_server_error", zap.Error(err))
		}
	}()

	// HTTP API
	httpHandler := handler.NewHTTPHandler(runner, factory, logger, observability.Tracer(), metrics)
	mux := http.NewServeMux()
	httpHandler.Routes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.WithRequestLogging(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_start", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http_server_error", zap.Error(err))
	}

	logger.Info("shutting_down")
	grpcHandler.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", zap.Error(err))
	}
	logger.Info("http_server_stopped")

	grpcServer.GracefulStop()
	logger.Info("grpc_server_stopped")

	return nil
}
