package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

func newTestEbay(t *testing.T, handler http.HandlerFunc) *EbayAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEbayAdapter(newHTTPClient(5*time.Second), srv.URL+"/", EbayUserCredentials{Token: "tok"}, nil)
}

func TestEbayAdapter_FetchListingsPaginates(t *testing.T) {
	var offsets []string
	a := newTestEbay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ebayInventoryItemPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, r.URL.Query().Get("offset"))

		n := ebayPageSize
		if offset > 0 {
			n = 2
		}
		items := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			cond := "NEW"
			if offset == 0 && i == 0 {
				cond = ""
			}
			items = append(items, map[string]any{
				"sku":       fmt.Sprintf("SKU-%d", offset+i),
				"condition": cond,
				"availability": map[string]any{
					"shipToLocationAvailability": map[string]any{"quantity": i},
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"total": ebayPageSize + 2, "inventoryItems": items})
	})

	listings, err := a.FetchListings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"0", "100"}, offsets)
	// the item without a condition is dropped
	require.Len(t, listings, ebayPageSize+1)
	assert.Equal(t, "SKU-1", listings[0].SKU)
	assert.Equal(t, 1, listings[0].MarketplaceQty)
	assert.Empty(t, listings[0].ListingID)
	assert.False(t, listings[0].Price.Valid)
}

func TestEbayAdapter_UpdateInventoryChunks(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int
	a := newTestEbay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ebayBulkUpdatePath, r.URL.Path)

		var req ebayBulkRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		batchSizes = append(batchSizes, len(req.Requests))
		mu.Unlock()

		resp := ebayBulkResponse{}
		for _, rq := range req.Requests {
			resp.Responses = append(resp.Responses, ebayBulkItemResponse{StatusCode: http.StatusOK, SKU: rq.SKU})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	updates := make([]domain.ListingQuantityUpdate, 30)
	for i := range updates {
		updates[i] = domain.ListingQuantityUpdate{SKU: fmt.Sprintf("SKU-%d", i), Qty: i}
	}

	require.NoError(t, a.UpdateInventory(context.Background(), updates))
	assert.Equal(t, []int{25, 5}, batchSizes)
}

func TestEbayAdapter_UpdateInventoryPartialFailure(t *testing.T) {
	a := newTestEbay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(`{"responses":[
			{"statusCode":200,"sku":"SKU-1"},
			{"statusCode":400,"sku":"SKU-2","errors":[{"errorId":25001,"message":"invalid quantity"}]}
		]}`))
	})

	err := a.UpdateInventory(context.Background(), []domain.ListingQuantityUpdate{
		{SKU: "SKU-1", Qty: 1},
		{SKU: "SKU-2", Qty: 2},
	})

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"SKU-2"}, partial.FailedSKUs())
	assert.Equal(t, 2, partial.Attempted)
	assert.Contains(t, err.Error(), "invalid quantity")
}

func TestEbayAdapter_APIError(t *testing.T) {
	a := newTestEbay(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := a.FetchListings(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "fetch_listings", apiErr.Operation)
	assert.Equal(t, "boom", apiErr.Body)
}
