package port

import (
	"context"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

// MarketplacePort talks to a single marketplace account.
type MarketplacePort interface {
	// FetchListings returns the current marketplace listings.
	FetchListings(ctx context.Context) ([]domain.Listing, error)

	// UpdateInventory applies quantity updates. Each adapter documents whether
	// a failure can leave some updates applied.
	UpdateInventory(ctx context.Context, updates []domain.ListingQuantityUpdate) error
}

// MarketplacePortFactory builds the port for one account config.
type MarketplacePortFactory interface {
	Build(ctx context.Context, config domain.MarketplaceConfig) (MarketplacePort, error)
}

type FactoryFunc func(ctx context.Context, config domain.MarketplaceConfig) (MarketplacePort, error)

func (f FactoryFunc) Build(ctx context.Context, config domain.MarketplaceConfig) (MarketplacePort, error) {
	return f(ctx, config)
}

// StaticPort returns a factory that always yields p.
func StaticPort(p MarketplacePort) MarketplacePortFactory {
	return FactoryFunc(func(context.Context, domain.MarketplaceConfig) (MarketplacePort, error) {
		return p, nil
	})
}
