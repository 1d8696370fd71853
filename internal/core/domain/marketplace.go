package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultQtyLimit = 9999

// Thresholds are the sync policy limits of one marketplace account.
type Thresholds struct {
	LimitQtyForSyncInMarketplace int
	LimitQtyForSyncInWarehouse   int
	LimitQtyDifferenceForSync    int
	LimitQtyForMarketplace       int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LimitQtyForSyncInMarketplace: defaultQtyLimit,
		LimitQtyForSyncInWarehouse:   defaultQtyLimit,
		LimitQtyDifferenceForSync:    0,
		LimitQtyForMarketplace:       defaultQtyLimit,
	}
}

// MarketplaceConfig holds the credentials and policy thresholds for one
// marketplace account. Build it with NewMarketplaceConfig and pass by value.
type MarketplaceConfig struct {
	Marketplace  string
	Account      string
	RefreshToken string

	// Amazon only.
	SellerID     string
	ClientID     string
	ClientSecret string

	Thresholds
}

// NormalizeMarketplace is the canonical form of a marketplace tag.
func NormalizeMarketplace(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func NewMarketplaceConfig(cfg MarketplaceConfig) (MarketplaceConfig, error) {
	cfg.Marketplace = NormalizeMarketplace(cfg.Marketplace)
	if err := cfg.Validate(); err != nil {
		return MarketplaceConfig{}, err
	}
	return cfg, nil
}

func (c MarketplaceConfig) Validate() error {
	switch {
	case c.Marketplace == "":
		return fmt.Errorf("%w: marketplace must not be empty", ErrValidation)
	case c.Account == "":
		return fmt.Errorf("%w: account must not be empty", ErrValidation)
	case c.RefreshToken == "":
		return fmt.Errorf("%w: refresh_token must not be empty", ErrValidation)
	case c.LimitQtyForSyncInMarketplace < 0:
		return fmt.Errorf("%w: limit_qty_for_sync_in_marketplace must be >= 0", ErrValidation)
	case c.LimitQtyForSyncInWarehouse < 0:
		return fmt.Errorf("%w: limit_qty_for_sync_in_warehouse must be >= 0", ErrValidation)
	case c.LimitQtyDifferenceForSync < 0:
		return fmt.Errorf("%w: limit_qty_difference_for_sync must be >= 0", ErrValidation)
	case c.LimitQtyForMarketplace < 0:
		return fmt.Errorf("%w: limit_qty_for_marketplace must be >= 0", ErrValidation)
	}
	return nil
}

// Listing is the marketplace view of a sellable unit at fetch time.
type Listing struct {
	SKU            string
	ConditionID    string
	MarketplaceQty int
	ListingID      string
	Price          decimal.NullDecimal
}

func NewListing(sku, conditionID string, marketplaceQty int, listingID string, price decimal.NullDecimal) (Listing, error) {
	l := Listing{
		SKU:            sku,
		ConditionID:    conditionID,
		MarketplaceQty: marketplaceQty,
		ListingID:      listingID,
		Price:          price,
	}
	if err := l.Validate(); err != nil {
		return Listing{}, err
	}
	return l, nil
}

func (l Listing) Validate() error {
	switch {
	case l.SKU == "":
		return fmt.Errorf("%w: sku must not be empty", ErrValidation)
	case l.ConditionID == "":
		return fmt.Errorf("%w: condition_id must not be empty", ErrValidation)
	case l.MarketplaceQty < 0:
		return fmt.Errorf("%w: marketplace_qty must be >= 0", ErrValidation)
	}
	return nil
}

// ListingQuantityUpdate is a command to set a listing's quantity.
type ListingQuantityUpdate struct {
	SKU       string
	Qty       int
	ListingID string
}
