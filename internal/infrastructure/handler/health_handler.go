package handler

import (
	"net/http"

	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OperationalHandler serves liveness and Prometheus metrics
type OperationalHandler struct {
	gatherer prometheus.Gatherer
	logger   logger.Logger
}

// NewOperationalHandler creates a handler for /health and /metrics
func NewOperationalHandler(gatherer prometheus.Gatherer, log logger.Logger) *OperationalHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &OperationalHandler{
		gatherer: gatherer,
		logger:   logger.OrDefault(log),
	}
}

// Health reports that the process is serving requests
func (h *OperationalHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// RegisterRoutes registers the operational routes
func (h *OperationalHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	h.logger.Info("Operational routes registered", map[string]interface{}{
		"routes": []string{
			"GET /health",
			"GET /metrics",
		},
	})
}
