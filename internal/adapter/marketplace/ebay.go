package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/observability"
)

const (
	ebayName           = "ebay"
	ebayPageSize       = 100
	ebayBulkUpdateSize = 25

	ebayInventoryItemPath = "/sell/inventory/v1/inventory_item"
	ebayBulkUpdatePath    = "/sell/inventory/v1/bulk_update_price_quantity"
)

type ebayInventoryPage struct {
	Total          int                 `json:"total"`
	InventoryItems []ebayInventoryItem `json:"inventoryItems"`
}

type ebayInventoryItem struct {
	SKU          string `json:"sku"`
	Condition    string `json:"condition"`
	Availability struct {
		ShipToLocationAvailability ebayAvailability `json:"shipToLocationAvailability"`
	} `json:"availability"`
}

type ebayAvailability struct {
	Quantity int `json:"quantity"`
}

type ebayBulkRequest struct {
	Requests []ebayQuantityRequest `json:"requests"`
}

type ebayQuantityRequest struct {
	SKU                        string           `json:"sku"`
	ShipToLocationAvailability ebayAvailability `json:"shipToLocationAvailability"`
}

type ebayBulkResponse struct {
	Responses []ebayBulkItemResponse `json:"responses"`
}

type ebayBulkItemResponse struct {
	StatusCode int         `json:"statusCode"`
	SKU        string      `json:"sku"`
	Errors     []ebayError `json:"errors"`
}

type ebayError struct {
	ErrorID int    `json:"errorId"`
	Message string `json:"message"`
}

// EbayAdapter talks to the eBay Sell Inventory API. Items are addressed by
// SKU, so listings carry no ListingID.
type EbayAdapter struct {
	client  *http.Client
	baseURL string
	creds   EbayUserCredentials
	logger  *zap.Logger
}

func NewEbayAdapter(client *http.Client, baseURL string, creds EbayUserCredentials, logger *zap.Logger) *EbayAdapter {
	return &EbayAdapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		logger:  observability.OrNop(logger),
	}
}

func (a *EbayAdapter) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+a.creds.Token)
	return h
}

func (a *EbayAdapter) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing

	for offset := 0; ; offset += ebayPageSize {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(ebayPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page ebayInventoryPage
		call := apiCall{
			marketplace: ebayName,
			operation:   "fetch_listings",
			method:      http.MethodGet,
			url:         a.baseURL + ebayInventoryItemPath + "?" + q.Encode(),
			header:      a.header(),
		}
		if _, err := call.do(ctx, a.client, &page); err != nil {
			return nil, err
		}

		for _, item := range page.InventoryItems {
			listing, err := domain.NewListing(
				item.SKU,
				item.Condition,
				item.Availability.ShipToLocationAvailability.Quantity,
				"",
				decimal.NullDecimal{},
			)
			if err != nil {
				a.logger.Warn("ebay_listing_skipped", zap.String("sku", item.SKU), zap.Error(err))
				continue
			}
			listings = append(listings, listing)
		}

		if len(page.InventoryItems) < ebayPageSize || offset+ebayPageSize >= page.Total {
			break
		}
	}

	return listings, nil
}

// UpdateInventory sends updates in chunks of 25. Chunks already accepted stay
// applied when a later one fails; rejected SKUs come back as a
// *PartialFailureError.
func (a *EbayAdapter) UpdateInventory(ctx context.Context, updates []domain.ListingQuantityUpdate) error {
	var failed []SKUFailure

	for start := 0; start < len(updates); start += ebayBulkUpdateSize {
		end := min(start+ebayBulkUpdateSize, len(updates))

		req := ebayBulkRequest{Requests: make([]ebayQuantityRequest, 0, end-start)}
		for _, u := range updates[start:end] {
			req.Requests = append(req.Requests, ebayQuantityRequest{
				SKU:                        u.SKU,
				ShipToLocationAvailability: ebayAvailability{Quantity: u.Qty},
			})
		}

		var resp ebayBulkResponse
		call := apiCall{
			marketplace: ebayName,
			operation:   "update_inventory",
			method:      http.MethodPost,
			url:         a.baseURL + ebayBulkUpdatePath,
			header:      a.header(),
			body:        req,
		}
		if _, err := call.do(ctx, a.client, &resp); err != nil {
			return err
		}

		for _, r := range resp.Responses {
			if r.StatusCode == http.StatusOK {
				continue
			}
			reason := fmt.Sprintf("status %d", r.StatusCode)
			if len(r.Errors) > 0 {
				reason = r.Errors[0].Message
			}
			failed = append(failed, SKUFailure{SKU: r.SKU, Reason: reason})
		}
	}

	if len(failed) > 0 {
		return &PartialFailureError{Marketplace: ebayName, Attempted: len(updates), Failed: failed}
	}
	return nil
}
