package handler

import (
	"net/http"

	"github.com/damon-houk/forex-conversion-service/internal/application/service"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// APIPrefix is the path prefix shared by the forex endpoints
const APIPrefix = "/api/v1/forex"

// ExchangeRateHandler handles HTTP requests for exchange rates
type ExchangeRateHandler struct {
	service *service.ExchangeRateService
	logger  logger.Logger
}

// NewExchangeRateHandler creates a new exchange rate handler
func NewExchangeRateHandler(service *service.ExchangeRateService, log logger.Logger) *ExchangeRateHandler {
	return &ExchangeRateHandler{
		service: service,
		logger:  logger.OrDefault(log),
	}
}

// GetExchangeRate handles GET /exchange-rate?source=USD&target=EUR
func (h *ExchangeRateHandler) GetExchangeRate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")

	h.logger.Info("Handling exchange rate request", map[string]interface{}{
		"request_id": requestID,
		"source":     source,
		"target":     target,
	})

	rate, err := h.service.GetRate(r.Context(), source, target)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, ExchangeRateResponse{
		SourceCurrency: rate.Source,
		TargetCurrency: rate.Target,
		Rate:           formatRate(rate.Rate),
	}, requestID)
}

// RegisterRoutes registers the exchange rate handler routes
func (h *ExchangeRateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(APIPrefix+"/exchange-rate", h.GetExchangeRate).Methods(http.MethodGet)

	h.logger.Info("Exchange rate routes registered", map[string]interface{}{
		"routes": []string{
			"GET " + APIPrefix + "/exchange-rate",
		},
	})
}
