package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_messages_processed",
	Help: "Number of inbound messages seen by automod",
}, []string{"result"})

var Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_decisions",
	Help: "Number of sanction decisions by kind and source",
}, []string{"kind", "source"})

var ClassifierRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_classifier_requests",
	Help: "Number of remote classifier calls by provider and outcome",
}, []string{"provider", "outcome"})

var ClassifierDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "automod_classifier_duration_sec",
	Help:    "Latency of remote classifier calls",
	Buckets: prometheus.ExponentialBuckets(0.025, 2, 10),
}, []string{"provider"})

var SanctionActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_sanction_actions",
	Help: "Number of sanction actions by action and outcome",
}, []string{"action", "outcome"})

var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_store_errors",
	Help: "Number of violation store failures",
}, []string{"op"})

var SnapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "automod_snapshot_version",
	Help: "Version of the active moderation snapshot",
})

// Server exposes /metrics over HTTP.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// Serve starts the metrics endpoint on addr in the background.
func Serve(addr string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.Named("metrics"),
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("Metrics endpoint listening", zap.String("addr", addr))
	return s
}

// Close shuts the endpoint down.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
