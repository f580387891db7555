package grpc

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the automod pipeline.
const ServiceName = "automod"

// HealthServer exposes the standard gRPC health service.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *zap.Logger
}

// NewHealthServer listens on addr and starts serving in the background.
// The automod service starts as NOT_SERVING.
func NewHealthServer(addr string, logger *zap.Logger) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	h := &HealthServer{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		lis:    lis,
		logger: logger.Named("health"),
	}
	healthpb.RegisterHealthServer(h.srv, h.health)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	go func() {
		if err := h.srv.Serve(lis); err != nil {
			h.logger.Error("Health server stopped", zap.Error(err))
		}
	}()
	h.logger.Info("gRPC health endpoint listening", zap.String("addr", lis.Addr().String()))
	return h, nil
}

// Addr returns the bound listen address.
func (h *HealthServer) Addr() string {
	return h.lis.Addr().String()
}

// SetServing flips the automod service and the overall server status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
	h.health.SetServingStatus("", status)
}

// Close marks everything NOT_SERVING and stops the server.
func (h *HealthServer) Close() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}
