package marketplace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rl1809/inventory-sync/internal/core/domain"
)

// MemoryAdapter is an in-process marketplace. Updates are all-or-nothing: an
// unknown SKU or a negative quantity rejects the whole batch.
type MemoryAdapter struct {
	mu       sync.RWMutex
	order    []string
	listings map[string]domain.Listing
	latency  time.Duration
	updates  int
}

func NewMemoryAdapter(listings ...domain.Listing) *MemoryAdapter {
	m := &MemoryAdapter{listings: make(map[string]domain.Listing, len(listings))}
	m.Seed(listings...)
	return m
}

// Seed adds or replaces listings by SKU.
func (m *MemoryAdapter) Seed(listings ...domain.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range listings {
		if _, ok := m.listings[l.SKU]; !ok {
			m.order = append(m.order, l.SKU)
		}
		m.listings[l.SKU] = l
	}
}

// SetLatency delays every call, to make concurrent runs overlap.
func (m *MemoryAdapter) SetLatency(d time.Duration) {
	m.mu.Lock()
	m.latency = d
	m.mu.Unlock()
}

// UpdateCalls returns how many batches were applied.
func (m *MemoryAdapter) UpdateCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updates
}

func (m *MemoryAdapter) wait(ctx context.Context) error {
	m.mu.RLock()
	d := m.latency
	m.mu.RUnlock()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MemoryAdapter) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Listing, 0, len(m.order))
	for _, sku := range m.order {
		out = append(out, m.listings[sku])
	}
	return out, nil
}

func (m *MemoryAdapter) UpdateInventory(ctx context.Context, updates []domain.ListingQuantityUpdate) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		if _, ok := m.listings[u.SKU]; !ok {
			return fmt.Errorf("memory: %w: %s", ErrUnknownSKU, u.SKU)
		}
		if u.Qty < 0 {
			return fmt.Errorf("memory: %w: negative qty for %s", domain.ErrValidation, u.SKU)
		}
	}

	for _, u := range updates {
		l := m.listings[u.SKU]
		l.MarketplaceQty = u.Qty
		m.listings[u.SKU] = l
	}
	m.updates++
	return nil
}

// MemoryMarketplace holds one MemoryAdapter per account.
type MemoryMarketplace struct {
	mu       sync.Mutex
	accounts map[string]*MemoryAdapter
}

func NewMemoryMarketplace() *MemoryMarketplace {
	return &MemoryMarketplace{accounts: make(map[string]*MemoryAdapter)}
}

// Account returns the adapter for account, creating an empty one on first use.
func (m *MemoryMarketplace) Account(account string) *MemoryAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[account]
	if !ok {
		a = NewMemoryAdapter()
		m.accounts[account] = a
	}
	return a
}
