package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ServiceName    = "inventory-sync"
	ServiceVersion = "0.1.0"
)

var ErrMissingEnv = errors.New("missing required environment variable")

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	Env         string
	LogLevel    string
	ServiceName string

	EbayClientID        string
	EbayClientSecret    string
	EbayBaseURL         string
	AmazonBaseURL       string
	AmazonMarketplaceID string
	MarketplaceTimeout  time.Duration

	// Empty disables the per-account sync lock.
	RedisAddr   string
	SyncLockTTL time.Duration

	// Empty disables sync run history.
	MySQLDSN string

	// Empty keeps tracing in-process only.
	OtelEndpoint string
}

// Load reads a .env file when present, then the environment. Variables
// already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),
		Env:         getEnv("ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ServiceName: getEnv("SERVICE_NAME", ServiceName),

		EbayClientID:        os.Getenv("EBAY_CLIENT_ID"),
		EbayClientSecret:    os.Getenv("EBAY_CLIENT_SECRET"),
		EbayBaseURL:         getEnv("EBAY_BASE_URL", "https://api.ebay.com"),
		AmazonBaseURL:       getEnv("AMAZON_BASE_URL", "https://sellingpartnerapi-na.amazon.com"),
		AmazonMarketplaceID: getEnv("AMAZON_MARKETPLACE_ID", "ATVPDKIKX0DER"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		MySQLDSN:     os.Getenv("MYSQL_DSN"),
		OtelEndpoint: os.Getenv("OTEL_ENDPOINT"),
	}

	var err error
	if cfg.MarketplaceTimeout, err = getDuration("MARKETPLACE_HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncLockTTL, err = getDuration("SYNC_LOCK_TTL", 2*time.Minute); err != nil {
		return nil, err
	}

	if cfg.EbayClientID == "" {
		return nil, fmt.Errorf("%w: EBAY_CLIENT_ID", ErrMissingEnv)
	}
	if cfg.EbayClientSecret == "" {
		return nil, fmt.Errorf("%w: EBAY_CLIENT_SECRET", ErrMissingEnv)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
