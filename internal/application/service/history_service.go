package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/domain/repository"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
)

// Paging limits for date queries
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DateLayout is the accepted transactionDate format
const DateLayout = "2006-01-02"

// HistoryQuery selects past conversions either by transaction ID or by
// calendar day (UTC). The ID wins when both are set.
type HistoryQuery struct {
	TransactionID   string
	TransactionDate string
	Page            int
	Size            int
}

// HistoryService retrieves recorded conversions
type HistoryService struct {
	repo   repository.TransactionRepository
	logger logger.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(repo repository.TransactionRepository, log logger.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: logger.OrDefault(log),
	}
}

// Find runs q and returns the matching page of transactions
func (s *HistoryService) Find(ctx context.Context, q HistoryQuery) (*entity.TransactionPage, error) {
	if id := strings.TrimSpace(q.TransactionID); id != "" {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		return &entity.TransactionPage{
			Items: []*entity.ConversionTransaction{tx},
			Page:  0,
			Size:  1,
			Total: 1,
		}, nil
	}

	if date := strings.TrimSpace(q.TransactionDate); date != "" {
		return s.FindByDate(ctx, date, q.Page, q.Size)
	}

	return nil, apperror.NewValidationError("", "transactionId or transactionDate is required")
}

// GetTransaction retrieves a transaction by ID
func (s *HistoryService) GetTransaction(ctx context.Context, id string) (*entity.ConversionTransaction, error) {
	tx, err := s.repo.FindByTransactionID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("Failed to retrieve transaction", map[string]interface{}{
				"request_id":     middleware.GetRequestID(ctx),
				"transaction_id": id,
				"error":          err.Error(),
			})
		}
		return nil, fmt.Errorf("failed to retrieve transaction: %w", err)
	}
	return tx, nil
}

// FindByDate returns one page of the transactions made on the given UTC day
func (s *HistoryService) FindByDate(ctx context.Context, date string, page, size int) (*entity.TransactionPage, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, apperror.NewValidationError("transactionDate", "must be a date in YYYY-MM-DD format")
	}
	if page < 0 {
		return nil, apperror.NewValidationError("page", "must not be negative")
	}
	if size < 1 || size > MaxPageSize {
		return nil, apperror.NewValidationError("size", fmt.Sprintf("must be between 1 and %d", MaxPageSize))
	}

	start := day.UTC()
	end := start.Add(24*time.Hour - time.Nanosecond)

	result, err := s.repo.FindByDateRange(ctx, start, end, page, size)
	if err != nil {
		s.logger.Error("Failed to query transactions by date", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"date":       date,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	return result, nil
}
