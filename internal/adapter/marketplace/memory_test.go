package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

func TestMemoryAdapter_FetchKeepsSeedOrder(t *testing.T) {
	m := NewMemoryAdapter(
		domain.Listing{SKU: "B", ConditionID: "NEW", MarketplaceQty: 1},
		domain.Listing{SKU: "A", ConditionID: "NEW", MarketplaceQty: 2},
	)
	m.Seed(domain.Listing{SKU: "B", ConditionID: "NEW", MarketplaceQty: 5})

	listings, err := m.FetchListings(context.Background())

	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "B", listings[0].SKU)
	assert.Equal(t, 5, listings[0].MarketplaceQty)
	assert.Equal(t, "A", listings[1].SKU)
}

func TestMemoryAdapter_UpdateIsAllOrNothing(t *testing.T) {
	m := NewMemoryAdapter(domain.Listing{SKU: "A", ConditionID: "NEW", MarketplaceQty: 1})
	ctx := context.Background()

	err := m.UpdateInventory(ctx, []domain.ListingQuantityUpdate{{SKU: "A", Qty: 9}, {SKU: "missing", Qty: 1}})
	assert.ErrorIs(t, err, ErrUnknownSKU)

	listings, _ := m.FetchListings(ctx)
	assert.Equal(t, 1, listings[0].MarketplaceQty)
	assert.Zero(t, m.UpdateCalls())

	require.NoError(t, m.UpdateInventory(ctx, []domain.ListingQuantityUpdate{{SKU: "A", Qty: 9}}))
	listings, _ = m.FetchListings(ctx)
	assert.Equal(t, 9, listings[0].MarketplaceQty)
	assert.Equal(t, 1, m.UpdateCalls())
}

func TestMemoryAdapter_LatencyHonoursContext(t *testing.T) {
	m := NewMemoryAdapter()
	m.SetLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.FetchListings(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
