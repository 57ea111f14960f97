// Package service contains the application use cases of the forex service
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/domain/repository"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConversionResult is what a caller gets back from a successful conversion
type ConversionResult struct {
	TransactionID   string
	SourceCurrency  string
	TargetCurrency  string
	OriginalAmount  decimal.Decimal
	ConvertedAmount decimal.Decimal
	ExchangeRate    decimal.Decimal
}

// ConversionService converts amounts and records each conversion as a transaction
type ConversionService struct {
	rates   repository.ExchangeRateRepository
	txRepo  repository.TransactionRepository
	metrics *metrics.ForexMetrics
	logger  logger.Logger

	now   func() time.Time
	newID func() string
}

// NewConversionService creates a new conversion service
func NewConversionService(
	rates repository.ExchangeRateRepository,
	txRepo repository.TransactionRepository,
	m *metrics.ForexMetrics,
	log logger.Logger,
) *ConversionService {
	return &ConversionService{
		rates:   rates,
		txRepo:  txRepo,
		metrics: m,
		logger:  logger.OrDefault(log),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Convert looks up the rate, computes the converted amount and persists the
// transaction. Nothing is returned unless the transaction was saved.
func (s *ConversionService) Convert(ctx context.Context, req entity.ConversionRequest) (*ConversionResult, error) {
	requestID := middleware.GetRequestID(ctx)

	req, err := req.Normalize()
	if err != nil {
		s.metrics.RecordConversion(statusOf(err))
		return nil, err
	}

	s.logger.Info("Converting currency", map[string]interface{}{
		"request_id": requestID,
		"source":     req.SourceCurrency,
		"target":     req.TargetCurrency,
		"amount":     req.Amount.String(),
	})

	rate, err := s.rates.FindRate(ctx, req.SourceCurrency, req.TargetCurrency)
	if err != nil {
		s.metrics.RecordConversion(statusOf(err))
		s.logger.Error("Failed to get exchange rate", map[string]interface{}{
			"request_id": requestID,
			"source":     req.SourceCurrency,
			"target":     req.TargetCurrency,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	tx := &entity.ConversionTransaction{
		TransactionID:   s.newID(),
		SourceCurrency:  req.SourceCurrency,
		TargetCurrency:  req.TargetCurrency,
		OriginalAmount:  req.Amount.Round(entity.AmountScale),
		ConvertedAmount: req.Amount.Mul(rate.Rate).Round(entity.AmountScale),
		ExchangeRate:    rate.Rate,
		TransactionDate: s.now(),
	}

	if err := s.txRepo.Save(ctx, tx); err != nil {
		s.metrics.RecordConversion(statusOf(err))
		s.logger.Error("Failed to save conversion", map[string]interface{}{
			"request_id":     requestID,
			"transaction_id": tx.TransactionID,
			"error":          err.Error(),
		})
		return nil, fmt.Errorf("failed to save conversion: %w", err)
	}

	s.metrics.RecordConversion("success")
	s.logger.Info("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"transaction_id":   tx.TransactionID,
		"source":           tx.SourceCurrency,
		"target":           tx.TargetCurrency,
		"original_amount":  tx.OriginalAmount.String(),
		"exchange_rate":    tx.ExchangeRate.String(),
		"converted_amount": tx.ConvertedAmount.String(),
	})

	return &ConversionResult{
		TransactionID:   tx.TransactionID,
		SourceCurrency:  tx.SourceCurrency,
		TargetCurrency:  tx.TargetCurrency,
		OriginalAmount:  tx.OriginalAmount,
		ConvertedAmount: tx.ConvertedAmount,
		ExchangeRate:    tx.ExchangeRate,
	}, nil
}

// statusOf maps an error to its conversion metric label
func statusOf(err error) string {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return "validation_error"
	case errors.Is(err, apperror.ErrExternalProvider):
		return "provider_error"
	case errors.Is(err, apperror.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
