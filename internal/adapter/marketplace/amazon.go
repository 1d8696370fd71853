package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/observability"
)

const (
	amazonName             = "amazon"
	amazonListingsPath     = "/listings/2021-08-01/items/"
	amazonDefaultChannel   = "DEFAULT"
	amazonDefaultProduct   = "PRODUCT"
	amazonIncludedData     = "summaries,offers,fulfillmentAvailability"
	amazonStatusAccepted   = "ACCEPTED"
	amazonIssueSeverityErr = "ERROR"
)

type amazonListingsPage struct {
	Items      []amazonListingItem `json:"items"`
	Pagination struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

type amazonListingItem struct {
	SKU       string `json:"sku"`
	Summaries []struct {
		ASIN          string `json:"asin"`
		ConditionType string `json:"conditionType"`
	} `json:"summaries"`
	Offers []struct {
		Price struct {
			Amount decimal.Decimal `json:"amount"`
		} `json:"price"`
	} `json:"offers"`
	FulfillmentAvailability []struct {
		FulfillmentChannelCode string `json:"fulfillmentChannelCode"`
		Quantity               int    `json:"quantity"`
	} `json:"fulfillmentAvailability"`
}

type amazonPatchRequest struct {
	ProductType string        `json:"productType"`
	Patches     []amazonPatch `json:"patches"`
}

type amazonPatch struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value []any  `json:"value"`
}

type amazonFulfillmentValue struct {
	FulfillmentChannelCode string `json:"fulfillment_channel_code"`
	Quantity               int    `json:"quantity"`
}

type amazonPatchResponse struct {
	SKU    string `json:"sku"`
	Status string `json:"status"`
	Issues []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"issues"`
}

// AmazonAdapter talks to the Selling Partner Listings Items API. The ASIN is
// used as ListingID.
//
// Requests are authorized with x-amz-access-token only. The caller supplies
// an LWA access token in the account's refresh_token field; this adapter does
// not exchange refresh tokens.
type AmazonAdapter struct {
	client        *http.Client
	baseURL       string
	marketplaceID string
	creds         AmazonUserCredentials
	logger        *zap.Logger
}

func NewAmazonAdapter(client *http.Client, baseURL, marketplaceID string, creds AmazonUserCredentials, logger *zap.Logger) *AmazonAdapter {
	return &AmazonAdapter{
		client:        client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		marketplaceID: marketplaceID,
		creds:         creds,
		logger:        observability.OrNop(logger),
	}
}

func (a *AmazonAdapter) header() http.Header {
	h := http.Header{}
	h.Set("x-amz-access-token", a.creds.AccessToken)
	return h
}

func (a *AmazonAdapter) itemsURL(sku string, q url.Values) string {
	u := a.baseURL + amazonListingsPath + url.PathEscape(a.creds.SellerPartnerID)
	if sku != "" {
		u += "/" + url.PathEscape(sku)
	}
	return u + "?" + q.Encode()
}

func (a *AmazonAdapter) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("marketplaceIds", a.marketplaceID)
		q.Set("includedData", amazonIncludedData)
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page amazonListingsPage
		call := apiCall{
			marketplace: amazonName,
			operation:   "fetch_listings",
			method:      http.MethodGet,
			url:         a.itemsURL("", q),
			header:      a.header(),
		}
		if _, err := call.do(ctx, a.client, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			listing, err := toAmazonListing(item)
			if err != nil {
				a.logger.Warn("amazon_listing_skipped", zap.String("sku", item.SKU), zap.Error(err))
				continue
			}
			listings = append(listings, listing)
		}

		pageToken = page.Pagination.NextToken
		if pageToken == "" {
			break
		}
	}

	return listings, nil
}

func toAmazonListing(item amazonListingItem) (domain.Listing, error) {
	var asin, condition string
	if len(item.Summaries) > 0 {
		asin = item.Summaries[0].ASIN
		condition = item.Summaries[0].ConditionType
	}

	qty := 0
	for _, fa := range item.FulfillmentAvailability {
		if fa.FulfillmentChannelCode == amazonDefaultChannel {
			qty = fa.Quantity
			break
		}
	}

	var price decimal.NullDecimal
	if len(item.Offers) > 0 {
		price = decimal.NewNullDecimal(item.Offers[0].Price.Amount)
	}

	return domain.NewListing(item.SKU, condition, qty, asin, price)
}

// UpdateInventory patches one SKU at a time. A transport or HTTP error stops
// the loop and is returned as-is; SKUs the API accepted before that stay
// applied. Rejected patches are collected into a *PartialFailureError.
func (a *AmazonAdapter) UpdateInventory(ctx context.Context, updates []domain.ListingQuantityUpdate) error {
	var failed []SKUFailure

	q := url.Values{}
	q.Set("marketplaceIds", a.marketplaceID)

	for i, u := range updates {
		var resp amazonPatchResponse
		call := apiCall{
			marketplace: amazonName,
			operation:   "update_inventory",
			method:      http.MethodPatch,
			url:         a.itemsURL(u.SKU, q),
			header:      a.header(),
			body: amazonPatchRequest{
				ProductType: amazonDefaultProduct,
				Patches: []amazonPatch{{
					Op:   "replace",
					Path: "/attributes/fulfillment_availability",
					Value: []any{amazonFulfillmentValue{
						FulfillmentChannelCode: amazonDefaultChannel,
						Quantity:               u.Qty,
					}},
				}},
			},
		}
		if _, err := call.do(ctx, a.client, &resp); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				a.logger.Warn("amazon_update_aborted",
					zap.String("sku", u.SKU),
					zap.Int("applied", i),
					zap.Int("status", apiErr.Status),
				)
			}
			return err
		}

		if resp.Status != amazonStatusAccepted {
			failed = append(failed, SKUFailure{SKU: u.SKU, Reason: amazonIssueReason(resp)})
		}
	}

	if len(failed) > 0 {
		return &PartialFailureError{Marketplace: amazonName, Attempted: len(updates), Failed: failed}
	}
	return nil
}

func amazonIssueReason(resp amazonPatchResponse) string {
	for _, issue := range resp.Issues {
		if issue.Severity == amazonIssueSeverityErr {
			return issue.Code + ": " + issue.Message
		}
	}
	if resp.Status == "" {
		return "no status"
	}
	return strings.ToLower(resp.Status)
}
