package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInsufficientQuantity = fmt.Errorf("%w: insufficient quantity", ErrValidation)
)

// InventoryKey identifies a warehouse stock line. ProductID is empty for
// condition-only keys.
type InventoryKey struct {
	ProductID   string
	ConditionID string
}

func NewInventoryKey(conditionID string) (InventoryKey, error) {
	if conditionID == "" {
		return InventoryKey{}, fmt.Errorf("%w: condition_id must not be empty", ErrValidation)
	}
	return InventoryKey{ConditionID: conditionID}, nil
}

func NewProductInventoryKey(productID, conditionID string) (InventoryKey, error) {
	if productID == "" {
		return InventoryKey{}, fmt.Errorf("%w: product_id must not be empty", ErrValidation)
	}
	if conditionID == "" {
		return InventoryKey{}, fmt.Errorf("%w: condition_id must not be empty", ErrValidation)
	}
	return InventoryKey{ProductID: productID, ConditionID: conditionID}, nil
}

func (k InventoryKey) String() string {
	if k.ProductID == "" {
		return k.ConditionID
	}
	return k.ProductID + "/" + k.ConditionID
}

// InventoryItem is a quantity record for one key. Quantity is never negative.
type InventoryItem struct {
	key      InventoryKey
	quantity int
}

func NewInventoryItem(key InventoryKey, quantity int) (*InventoryItem, error) {
	if key.ConditionID == "" {
		return nil, fmt.Errorf("%w: condition_id must not be empty", ErrValidation)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}
	return &InventoryItem{key: key, quantity: quantity}, nil
}

func (i *InventoryItem) Key() InventoryKey { return i.key }
func (i *InventoryItem) Quantity() int     { return i.quantity }

func (i *InventoryItem) Increase(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: amount must be >= 0", ErrValidation)
	}
	if amount > math.MaxInt-i.quantity {
		return fmt.Errorf("%w: quantity overflow", ErrValidation)
	}
	i.quantity += amount
	return nil
}

func (i *InventoryItem) Decrease(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: amount must be >= 0", ErrValidation)
	}
	if amount > i.quantity {
		return fmt.Errorf("%w: have %d, want %d", ErrInsufficientQuantity, i.quantity, amount)
	}
	i.quantity -= amount
	return nil
}

// SnapshotEntry is one read-only line of an InventorySnapshot.
type SnapshotEntry struct {
	Key      InventoryKey
	Quantity int
}

// InventorySnapshot is an immutable view of aggregated warehouse stock.
// A key missing from the snapshot has quantity 0.
type InventorySnapshot struct {
	qty map[InventoryKey]int
}

// NewInventorySnapshot copies items; later changes to the map or the items
// are not visible through the snapshot.
func NewInventorySnapshot(items map[InventoryKey]*InventoryItem) *InventorySnapshot {
	qty := make(map[InventoryKey]int, len(items))
	for k, item := range items {
		if item == nil {
			continue
		}
		qty[k] = item.Quantity()
	}
	return &InventorySnapshot{qty: qty}
}

// QtyFor returns the warehouse quantity for key, or 0 when the key is absent.
func (s *InventorySnapshot) QtyFor(key InventoryKey) int {
	if s == nil {
		return 0
	}
	return s.qty[key]
}

func (s *InventorySnapshot) Lookup(key InventoryKey) (int, bool) {
	if s == nil {
		return 0, false
	}
	q, ok := s.qty[key]
	return q, ok
}

func (s *InventorySnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.qty)
}

// Items returns the snapshot lines ordered by key.
func (s *InventorySnapshot) Items() []SnapshotEntry {
	if s == nil {
		return nil
	}
	out := make([]SnapshotEntry, 0, len(s.qty))
	for k, q := range s.qty {
		out = append(out, SnapshotEntry{Key: k, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.ProductID != out[j].Key.ProductID {
			return out[i].Key.ProductID < out[j].Key.ProductID
		}
		return out[i].Key.ConditionID < out[j].Key.ConditionID
	})
	return out
}

// InventoryRecord is a raw warehouse line as received from the system of record.
type InventoryRecord struct {
	ProductID   string
	ConditionID string
	Quantity    int
}

// RecordKeyFunc derives the aggregation key for a raw record.
type RecordKeyFunc func(InventoryRecord) (InventoryKey, error)

func ConditionRecordKey(r InventoryRecord) (InventoryKey, error) {
	return NewInventoryKey(r.ConditionID)
}

func ProductConditionRecordKey(r InventoryRecord) (InventoryKey, error) {
	return NewProductInventoryKey(r.ProductID, r.ConditionID)
}

// AggregateSnapshot sums records sharing a key and freezes the result.
func AggregateSnapshot(records []InventoryRecord, keyFn RecordKeyFunc) (*InventorySnapshot, error) {
	if keyFn == nil {
		keyFn = ConditionRecordKey
	}

	aggregated := make(map[InventoryKey]*InventoryItem, len(records))
	for i, r := range records {
		key, err := keyFn(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		item, ok := aggregated[key]
		if !ok {
			item, err = NewInventoryItem(key, 0)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			aggregated[key] = item
		}

		if err := item.Increase(r.Quantity); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	return NewInventorySnapshot(aggregated), nil
}
