package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/observability"
	"github.com/rl1809/inventory-sync/internal/port"
)

const (
	Ebay   = "ebay"
	Amazon = "amazon"
	Memory = "memory"

	DefaultEbayBaseURL         = "https://api.ebay.com"
	DefaultAmazonBaseURL       = "https://sellingpartnerapi-na.amazon.com"
	DefaultAmazonMarketplaceID = "ATVPDKIKX0DER"
	defaultHTTPTimeout         = 10 * time.Second
)

type FactoryConfig struct {
	EbayBaseURL         string
	EbayDeveloper       EbayDeveloperCredentials
	AmazonBaseURL       string
	AmazonMarketplaceID string
	HTTPTimeout         time.Duration

	// EnableMemory exposes the in-process marketplace under the "memory" tag.
	// Off in production.
	EnableMemory bool
}

// Factory builds the adapter matching a config's marketplace tag. One HTTP
// client is shared by all adapters it builds.
type Factory struct {
	cfg    FactoryConfig
	client *http.Client
	memory *MemoryMarketplace
	logger *zap.Logger
}

var _ port.MarketplacePortFactory = (*Factory)(nil)

func NewFactory(cfg FactoryConfig, memory *MemoryMarketplace, logger *zap.Logger) (*Factory, error) {
	if err := cfg.EbayDeveloper.Validate(); err != nil {
		return nil, err
	}
	if cfg.EbayBaseURL == "" {
		cfg.EbayBaseURL = DefaultEbayBaseURL
	}
	if cfg.AmazonBaseURL == "" {
		cfg.AmazonBaseURL = DefaultAmazonBaseURL
	}
	if cfg.AmazonMarketplaceID == "" {
		cfg.AmazonMarketplaceID = DefaultAmazonMarketplaceID
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if memory == nil {
		memory = NewMemoryMarketplace()
	}
	return &Factory{
		cfg:    cfg,
		client: newHTTPClient(cfg.HTTPTimeout),
		memory: memory,
		logger: observability.OrNop(logger),
	}, nil
}

func (f *Factory) Memory() *MemoryMarketplace { return f.memory }

func (f *Factory) Build(ctx context.Context, config domain.MarketplaceConfig) (port.MarketplacePort, error) {
	logger := f.logger.With(
		zap.String("marketplace", config.Marketplace),
		zap.String("account", config.Account),
	)

	switch config.Marketplace {
	case Ebay:
		creds, err := NewEbayUserCredentials(config.RefreshToken)
		if err != nil {
			return nil, err
		}
		return NewEbayAdapter(f.client, f.cfg.EbayBaseURL, creds, logger), nil

	case Amazon:
		creds, err := NewAmazonUserCredentials(config.SellerID, config.ClientID, config.ClientSecret, config.RefreshToken)
		if err != nil {
			return nil, err
		}
		return NewAmazonAdapter(f.client, f.cfg.AmazonBaseURL, f.cfg.AmazonMarketplaceID, creds, logger), nil

	case Memory:
		if f.cfg.EnableMemory {
			return f.memory.Account(config.Account), nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMarketplace, config.Marketplace)
}
