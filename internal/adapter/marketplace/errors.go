package marketplace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedMarketplace = errors.New("unsupported marketplace")
	ErrUnknownSKU             = errors.New("unknown sku")
)

// APIError is returned when a marketplace answers with a non-2xx status.
type APIError struct {
	Marketplace string
	Operation   string
	Status      int
	Body        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Marketplace, e.Operation, e.Status, e.Body)
}

// SKUFailure is one rejected update inside a batch.
type SKUFailure struct {
	SKU    string
	Reason string
}

// PartialFailureError reports updates the marketplace rejected. Updates not
// listed in Failed were applied and are not rolled back.
type PartialFailureError struct {
	Marketplace string
	Attempted   int
	Failed      []SKUFailure
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.SKU, f.Reason))
	}
	return fmt.Sprintf("%s: %d of %d updates failed: %s",
		e.Marketplace, len(e.Failed), e.Attempted, strings.Join(parts, "; "))
}

// FailedSKUs returns the SKUs of the rejected updates in order.
func (e *PartialFailureError) FailedSKUs() []string {
	skus := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		skus = append(skus, f.SKU)
	}
	return skus
}
