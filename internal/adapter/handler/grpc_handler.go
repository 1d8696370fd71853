package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// SyncServiceName is the health check name of the sync API.
const SyncServiceName = "inventory.sync.v1.InventorySync"

type GRPCHandler struct {
	health *health.Server
}

func NewGRPCHandler() *GRPCHandler {
	return &GRPCHandler{health: health.NewServer()}
}

// Register installs the health and reflection services and reports the sync
// service as serving.
func (h *GRPCHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
	reflection.Register(s)

	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(SyncServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown flips every service to NOT_SERVING.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
}
