package handler

import (
	"net/http"
	"strconv"

	"github.com/damon-houk/forex-conversion-service/internal/application/service"
	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// HistoryHandler handles HTTP requests for conversion history
type HistoryHandler struct {
	service *service.HistoryService
	logger  logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service *service.HistoryService, log logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger.OrDefault(log),
	}
}

// GetHistory handles GET /history?transactionId=... or ?transactionDate=YYYY-MM-DD&page=0&size=10
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	h.logger.Info("Handling history request", map[string]interface{}{
		"request_id": requestID,
		"query":      r.URL.RawQuery,
	})

	page, err := intParam(query.Get("page"), "page", 0)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	size, err := intParam(query.Get("size"), "size", service.DefaultPageSize)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	result, err := h.service.Find(r.Context(), service.HistoryQuery{
		TransactionID:   query.Get("transactionId"),
		TransactionDate: query.Get("transactionDate"),
		Page:            page,
		Size:            size,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	resp := make([]HistoryResponse, 0, len(result.Items))
	for _, tx := range result.Items {
		resp = append(resp, toHistoryResponse(tx))
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	sendJSON(w, h.logger, http.StatusOK, resp, requestID)
}

// RegisterRoutes registers the history handler routes
func (h *HistoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(APIPrefix+"/history", h.GetHistory).Methods(http.MethodGet)

	h.logger.Info("History routes registered", map[string]interface{}{
		"routes": []string{
			"GET " + APIPrefix + "/history",
		},
	})
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
