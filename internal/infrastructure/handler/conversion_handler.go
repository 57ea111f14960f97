// Package handler exposes the forex services over HTTP
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/damon-houk/forex-conversion-service/internal/application/service"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

const maxConvertBodyBytes = 1 << 20

// ConversionHandler handles HTTP requests for single conversions
type ConversionHandler struct {
	service *service.ConversionService
	logger  logger.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service *service.ConversionService, log logger.Logger) *ConversionHandler {
	return &ConversionHandler{
		service: service,
		logger:  logger.OrDefault(log),
	}
}

// Convert handles POST /convert
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling convert request", map[string]interface{}{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	var req ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConvertBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	if msg := validateConvertRequest(req); msg != "" {
		h.logger.Warn("Validation failed", map[string]interface{}{
			"request_id": requestID,
			"error":      msg,
		})
		sendErrorResponse(w, h.logger, "Validation failed", msg, http.StatusBadRequest, requestID)
		return
	}

	result, err := h.service.Convert(r.Context(), entity.ConversionRequest{
		SourceCurrency: req.SourceCurrency,
		TargetCurrency: req.TargetCurrency,
		Amount:         req.Amount.Decimal,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, toConversionResponse(result), requestID)
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(APIPrefix+"/convert", h.Convert).Methods(http.MethodPost)

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"POST " + APIPrefix + "/convert",
		},
	})
}
