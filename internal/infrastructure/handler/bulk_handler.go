package handler

import (
	"errors"
	"net/http"

	"github.com/damon-houk/forex-conversion-service/internal/application/service"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

const (
	// DefaultMaxUploadBytes caps the size of a bulk upload
	DefaultMaxUploadBytes int64 = 10 << 20

	// multipartMemory is held in memory before parts spill to temp files
	multipartMemory int64 = 1 << 20

	bulkFileField = "file"
)

// BulkConversionHandler handles CSV bulk conversion uploads
type BulkConversionHandler struct {
	service        *service.BulkConversionService
	maxUploadBytes int64
	logger         logger.Logger
}

// NewBulkConversionHandler creates a new bulk conversion handler
func NewBulkConversionHandler(service *service.BulkConversionService, maxUploadBytes int64, log logger.Logger) *BulkConversionHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	return &BulkConversionHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.OrDefault(log),
	}
}

// BulkConvert handles POST /bulk-convert with a multipart "file" part holding CSV.
// Only successful conversions are returned.
func (h *BulkConversionHandler) BulkConvert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling bulk convert request", map[string]interface{}{
		"request_id":     requestID,
		"content_length": r.ContentLength,
	})

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Bulk upload too large", map[string]interface{}{
				"request_id": requestID,
				"limit":      tooLarge.Limit,
			})
			sendErrorResponse(w, h.logger, "Upload too large",
				"The uploaded file exceeds the configured size limit", http.StatusRequestEntityTooLarge, requestID)
			return
		}

		h.logger.Warn("Invalid multipart request", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request must be multipart/form-data with a 'file' part", http.StatusBadRequest, requestID)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(bulkFileField)
	if err != nil {
		h.logger.Warn("Missing upload file", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Validation failed", "file: is required", http.StatusBadRequest, requestID)
		return
	}
	defer file.Close()

	report, err := h.service.ProcessBulk(r.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	resp := make([]ConversionResponse, 0, len(report.Results))
	for _, res := range report.Results {
		resp = append(resp, toConversionResponse(res))
	}

	h.logger.Info("Bulk conversion processed", map[string]interface{}{
		"request_id": requestID,
		"filename":   header.Filename,
		"converted":  len(report.Results),
		"dropped":    len(report.Failures),
	})

	sendJSON(w, h.logger, http.StatusOK, resp, requestID)
}

// RegisterRoutes registers the bulk conversion handler routes
func (h *BulkConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(APIPrefix+"/bulk-convert", h.BulkConvert).Methods(http.MethodPost)

	h.logger.Info("Bulk conversion routes registered", map[string]interface{}{
		"routes": []string{
			"POST " + APIPrefix + "/bulk-convert",
		},
	})
}
