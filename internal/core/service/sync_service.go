package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/observability"
	"github.com/rl1809/inventory-sync/internal/port"
)

// KeyStrategy maps a listing to the warehouse key it is joined on.
type KeyStrategy func(domain.Listing) (domain.InventoryKey, error)

// ConditionKey joins on the listing's condition only.
func ConditionKey(l domain.Listing) (domain.InventoryKey, error) {
	return domain.NewInventoryKey(l.ConditionID)
}

// SKUConditionKey joins on SKU as product id plus condition.
func SKUConditionKey(l domain.Listing) (domain.InventoryKey, error) {
	return domain.NewProductInventoryKey(l.SKU, l.ConditionID)
}

type Option func(*SyncInventoryService)

func WithKeyStrategy(k KeyStrategy) Option {
	return func(s *SyncInventoryService) {
		if k != nil {
			s.keyFor = k
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *SyncInventoryService) { s.logger = observability.OrNop(l) }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *SyncInventoryService) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *observability.SyncMetrics) Option {
	return func(s *SyncInventoryService) { s.metrics = m }
}

// SyncInventoryService runs one reconciliation pass between a warehouse
// snapshot and the listings of a single marketplace account.
type SyncInventoryService struct {
	policy  domain.MarketplacePolicy
	config  domain.MarketplaceConfig
	factory port.MarketplacePortFactory
	keyFor  KeyStrategy

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *observability.SyncMetrics
}

func NewSyncInventoryService(policy domain.MarketplacePolicy, config domain.MarketplaceConfig, factory port.MarketplacePortFactory, opts ...Option) *SyncInventoryService {
	s := &SyncInventoryService{
		policy:  policy,
		config:  config,
		factory: factory,
		keyFor:  ConditionKey,
		logger:  zap.NewNop(),
		tracer:  observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(
		zap.String("marketplace", config.Marketplace),
		zap.String("account", config.Account),
	)
	return s
}

func (s *SyncInventoryService) Config() domain.MarketplaceConfig { return s.config }
func (s *SyncInventoryService) Policy() domain.MarketplacePolicy { return s.policy }

// Sync fetches the account's listings, decides which need a new quantity and
// pushes all of them in a single update call. The port is not called for
// updates when nothing changed. Port errors are returned as-is, never retried.
func (s *SyncInventoryService) Sync(ctx context.Context, snapshot *domain.InventorySnapshot) (updates []domain.ListingQuantityUpdate, err error) {
	ctx, span := s.tracer.Start(ctx, "SyncInventory", trace.WithAttributes(
		attribute.String("marketplace", s.config.Marketplace),
		attribute.String("account", s.config.Account),
		attribute.Int("inventory.keys", snapshot.Len()),
	))
	start := time.Now()

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("sync.updates", len(updates)))
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		latency := time.Since(start).Seconds()
		s.metrics.ObserveRun(s.config.Marketplace, outcome, latency)

		fields := []zap.Field{
			zap.String("outcome", outcome),
			zap.Int("updates", len(updates)),
			zap.Float64("latency_seconds", latency),
		}
		if sc := span.SpanContext(); sc.IsValid() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		s.logger.Info("sync_done", fields...)
	}()

	mp, err := s.factory.Build(ctx, s.config)
	if err != nil {
		return nil, err
	}

	listings, err := s.fetch(ctx, mp)
	if err != nil {
		return nil, err
	}

	updates = s.plan(listings, snapshot)

	if len(updates) == 0 {
		return updates, nil
	}

	if err := s.push(ctx, mp, updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// plan applies the policy to each listing in port order.
func (s *SyncInventoryService) plan(listings []domain.Listing, snapshot *domain.InventorySnapshot) []domain.ListingQuantityUpdate {
	updates := make([]domain.ListingQuantityUpdate, 0)

	for _, listing := range listings {
		if listing.SKU == "" || listing.ConditionID == "" || listing.MarketplaceQty < 0 {
			s.decision(listing, "missing_join_fields")
			continue
		}

		key, err := s.keyFor(listing)
		if err != nil {
			s.decision(listing, "invalid_key")
			continue
		}

		warehouseQty := snapshot.QtyFor(key)

		if reason, ok := s.policy.Decide(listing, warehouseQty); !ok {
			s.decision(listing, string(reason), zap.Int("warehouse_qty", warehouseQty))
			continue
		}

		target := s.policy.CalcTargetQty(warehouseQty)
		if target == listing.MarketplaceQty {
			// capped target already matches the marketplace
			s.decision(listing, "target_matches_marketplace", zap.Int("target_qty", target))
			continue
		}
		s.decision(listing, "sync",
			zap.Int("warehouse_qty", warehouseQty),
			zap.Int("target_qty", target),
		)

		updates = append(updates, domain.ListingQuantityUpdate{
			SKU:       listing.SKU,
			Qty:       target,
			ListingID: listing.ListingID,
		})
	}

	return updates
}

func (s *SyncInventoryService) decision(listing domain.Listing, decision string, fields ...zap.Field) {
	s.metrics.CountDecision(s.config.Marketplace, decision)
	if ce := s.logger.Check(zap.DebugLevel, "listing_decision"); ce != nil {
		ce.Write(append([]zap.Field{
			zap.String("sku", listing.SKU),
			zap.String("condition_id", listing.ConditionID),
			zap.Int("marketplace_qty", listing.MarketplaceQty),
			zap.String("decision", decision),
		}, fields...)...)
	}
}

func (s *SyncInventoryService) fetch(ctx context.Context, mp port.MarketplacePort) ([]domain.Listing, error) {
	ctx, span := s.tracer.Start(ctx, "FetchListings")
	defer span.End()

	start := time.Now()
	listings, err := mp.FetchListings(ctx)
	s.metrics.ObserveExternal(s.config.Marketplace, "fetch_listings", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "FETCH_FAILED")
		return nil, err
	}

	span.SetAttributes(attribute.Int("listings", len(listings)))
	return listings, nil
}

func (s *SyncInventoryService) push(ctx context.Context, mp port.MarketplacePort, updates []domain.ListingQuantityUpdate) error {
	ctx, span := s.tracer.Start(ctx, "UpdateInventory", trace.WithAttributes(
		attribute.Int("updates", len(updates)),
	))
	defer span.End()

	start := time.Now()
	err := mp.UpdateInventory(ctx, updates)
	s.metrics.ObserveExternal(s.config.Marketplace, "update_inventory", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "UPDATE_FAILED")
		return err
	}
	return nil
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
