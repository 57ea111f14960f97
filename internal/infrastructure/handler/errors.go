package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
)

// writeServiceError maps a service error onto the HTTP error contract.
// Provider failures expose only their classification tag.
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, requestID string) {
	var (
		vErr *apperror.ValidationError
		pErr *apperror.ProviderError
	)

	switch {
	case errors.As(err, &vErr):
		log.Warn("Validation failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Validation failed", vErr.Error(), http.StatusBadRequest, requestID)
	case errors.Is(err, apperror.ErrValidation):
		log.Warn("Validation failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Validation failed", err.Error(), http.StatusBadRequest, requestID)
	case errors.As(err, &pErr):
		log.Error("Exchange rate provider error", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Exchange rate service unavailable", pErr.Tag(), http.StatusServiceUnavailable, requestID)
	case errors.Is(err, apperror.ErrNotFound):
		log.Warn("Transaction not found", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Transaction not found",
			"The requested transaction could not be found", http.StatusNotFound, requestID)
	default:
		log.Error("Unexpected error", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Internal server error",
			"An unexpected error occurred. Please try again later.", http.StatusInternalServerError, requestID)
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	}

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	json.NewEncoder(w).Encode(resp)
}

// sendJSON writes v with the given status
func sendJSON(w http.ResponseWriter, log logger.Logger, statusCode int, v interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}
