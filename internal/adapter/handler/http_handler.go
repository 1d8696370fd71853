package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-sync/internal/adapter/marketplace"
	"github.com/rl1809/inventory-sync/internal/core/domain"
	"github.com/rl1809/inventory-sync/internal/core/service"
	"github.com/rl1809/inventory-sync/internal/observability"
	"github.com/rl1809/inventory-sync/internal/port"
)

const (
	maxBodyBytes    = 8 << 20
	requestIDHeader = "X-Request-ID"
)

type HTTPHandler struct {
	runner  *service.SyncRunner
	factory port.MarketplacePortFactory
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *observability.SyncMetrics
}

func NewHTTPHandler(runner *service.SyncRunner, factory port.MarketplacePortFactory, logger *zap.Logger, tracer trace.Tracer, metrics *observability.SyncMetrics) *HTTPHandler {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &HTTPHandler{
		runner:  runner,
		factory: factory,
		logger:  observability.OrNop(logger),
		tracer:  tracer,
		metrics: metrics,
	}
}

// Routes registers the API on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/marketplaces/{marketplace}/inventory/sync", h.SyncInventory)
	mux.HandleFunc("GET /v1/marketplaces/{marketplace}/accounts/{account}/sync-runs", h.ListSyncRuns)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type inventoryRecordRequest struct {
	ProductID   string `json:"product_id"`
	ConditionID string `json:"condition_id"`
	Quantity    int    `json:"quantity"`
}

type SyncHTTPRequest struct {
	Account      string `json:"account"`
	RefreshToken string `json:"refresh_token"`
	SellerID     string `json:"seller_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	LimitQtyForSyncInMarketplace *int `json:"limit_qty_for_sync_in_marketplace"`
	LimitQtyForSyncInWarehouse   *int `json:"limit_qty_for_sync_in_warehouse"`
	LimitQtyDifferenceForSync    *int `json:"limit_qty_difference_for_sync"`
	LimitQtyForMarketplace       *int `json:"limit_qty_for_marketplace"`

	Inventory []inventoryRecordRequest `json:"inventory"`
}

type updateResponse struct {
	SKU       string  `json:"sku"`
	ListingID *string `json:"listing_id"`
	Qty       int     `json:"qty"`
}

type SyncHTTPResponse struct {
	RunID   string           `json:"run_id"`
	Updates []updateResponse `json:"updates"`
}

type syncRunResponse struct {
	ID          string    `json:"id"`
	Marketplace string    `json:"marketplace"`
	Account     string    `json:"account"`
	UpdateCount int       `json:"update_count"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (h *HTTPHandler) SyncInventory(w http.ResponseWriter, r *http.Request) {
	var req SyncHTTPRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	cfg, err := domain.NewMarketplaceConfig(domain.MarketplaceConfig{
		Marketplace:  r.PathValue("marketplace"),
		Account:      req.Account,
		RefreshToken: req.RefreshToken,
		SellerID:     req.SellerID,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Thresholds:   req.thresholds(),
	})
	if err != nil {
		writeSyncError(w, err)
		return
	}

	snapshot, keyStrategy, err := req.snapshot()
	if err != nil {
		writeSyncError(w, err)
		return
	}

	svc := service.NewSyncInventoryService(
		domain.NewMarketplacePolicy(cfg),
		cfg,
		h.factory,
		service.WithKeyStrategy(keyStrategy),
		service.WithLogger(h.logger),
		service.WithTracer(h.tracer),
		service.WithMetrics(h.metrics),
	)

	result, err := h.runner.Run(r.Context(), svc, snapshot)
	if err != nil {
		writeSyncError(w, err)
		return
	}

	resp := SyncHTTPResponse{RunID: result.RunID, Updates: make([]updateResponse, 0, len(result.Updates))}
	for _, u := range result.Updates {
		item := updateResponse{SKU: u.SKU, Qty: u.Qty}
		if u.ListingID != "" {
			id := u.ListingID
			item.ListingID = &id
		}
		resp.Updates = append(resp.Updates, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (req SyncHTTPRequest) thresholds() domain.Thresholds {
	th := domain.DefaultThresholds()
	if req.LimitQtyForSyncInMarketplace != nil {
		th.LimitQtyForSyncInMarketplace = *req.LimitQtyForSyncInMarketplace
	}
	if req.LimitQtyForSyncInWarehouse != nil {
		th.LimitQtyForSyncInWarehouse = *req.LimitQtyForSyncInWarehouse
	}
	if req.LimitQtyDifferenceForSync != nil {
		th.LimitQtyDifferenceForSync = *req.LimitQtyDifferenceForSync
	}
	if req.LimitQtyForMarketplace != nil {
		th.LimitQtyForMarketplace = *req.LimitQtyForMarketplace
	}
	return th
}

// snapshot aggregates the request inventory. Records carrying a product id
// switch the sync to SKU plus condition keys, and then every record needs one.
func (req SyncHTTPRequest) snapshot() (*domain.InventorySnapshot, service.KeyStrategy, error) {
	keyFn, strategy := domain.ConditionRecordKey, service.ConditionKey
	for _, rec := range req.Inventory {
		if rec.ProductID != "" {
			keyFn, strategy = domain.ProductConditionRecordKey, service.SKUConditionKey
			break
		}
	}

	records := make([]domain.InventoryRecord, 0, len(req.Inventory))
	for _, rec := range req.Inventory {
		records = append(records, domain.InventoryRecord{
			ProductID:   rec.ProductID,
			ConditionID: rec.ConditionID,
			Quantity:    rec.Quantity,
		})
	}

	snapshot, err := domain.AggregateSnapshot(records, keyFn)
	if err != nil {
		return nil, nil, fmt.Errorf("inventory %w", err)
	}
	return snapshot, strategy, nil
}

func (h *HTTPHandler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	recorder := h.runner.Recorder()
	if recorder == nil {
		writeError(w, http.StatusNotFound, errors.New("sync run history is not enabled"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := recorder.ListSyncRuns(r.Context(), domain.NormalizeMarketplace(r.PathValue("marketplace")), r.PathValue("account"), limit)
	if err != nil {
		h.logger.Error("list_sync_runs_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	resp := make([]syncRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, syncRunResponse{
			ID:          run.ID,
			Marketplace: run.Marketplace,
			Account:     run.Account,
			UpdateCount: run.UpdateCount,
			Status:      string(run.Status),
			Error:       run.Error,
			StartedAt:   run.StartedAt,
			FinishedAt:  run.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": resp})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// WithRequestLogging tags each request with an id and logs its outcome.
func WithRequestLogging(logger *zap.Logger, next http.Handler) http.Handler {
	logger = observability.OrNop(logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info("http_request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, marketplace.ErrUnsupportedMarketplace):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
