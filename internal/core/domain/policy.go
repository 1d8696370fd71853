package domain

// MarketplacePolicy decides whether a listing should be synced and what
// quantity to push. It holds no state beyond its config.
type MarketplacePolicy struct {
	config MarketplaceConfig
}

func NewMarketplacePolicy(config MarketplaceConfig) MarketplacePolicy {
	return MarketplacePolicy{config: config}
}

func (p MarketplacePolicy) Config() MarketplaceConfig { return p.config }

// ShouldSync reports whether listing needs a quantity update. The checks run
// in order and the first failing one wins.
func (p MarketplacePolicy) ShouldSync(listing Listing, warehouseQty int) bool {
	_, ok := p.Decide(listing, warehouseQty)
	return ok
}

// SkipReason names the check that rejected a listing.
type SkipReason string

const (
	SkipNone                 SkipReason = ""
	SkipNegativeWarehouseQty SkipReason = "negative_warehouse_qty"
	SkipMarketplaceQtyLimit  SkipReason = "marketplace_qty_over_limit"
	SkipWarehouseQtyLimit    SkipReason = "warehouse_qty_over_limit"
	SkipInSync               SkipReason = "in_sync"
	SkipDifferenceTooSmall   SkipReason = "difference_below_threshold"
)

// Decide is ShouldSync with the reason for a skip.
func (p MarketplacePolicy) Decide(listing Listing, warehouseQty int) (SkipReason, bool) {
	if warehouseQty < 0 {
		return SkipNegativeWarehouseQty, false
	}
	if listing.MarketplaceQty > p.config.LimitQtyForSyncInMarketplace {
		return SkipMarketplaceQtyLimit, false
	}
	if warehouseQty > p.config.LimitQtyForSyncInWarehouse {
		return SkipWarehouseQtyLimit, false
	}
	if listing.MarketplaceQty == warehouseQty {
		return SkipInSync, false
	}

	diff := warehouseQty - listing.MarketplaceQty
	if diff < 0 {
		diff = -diff
	}
	// diff equal to the threshold still syncs
	if diff < p.config.LimitQtyDifferenceForSync {
		return SkipDifferenceTooSmall, false
	}

	return SkipNone, true
}

// CalcTargetQty caps warehouseQty at the marketplace quantity limit.
func (p MarketplacePolicy) CalcTargetQty(warehouseQty int) int {
	if warehouseQty > p.config.LimitQtyForMarketplace {
		return p.config.LimitQtyForMarketplace
	}
	return warehouseQty
}
