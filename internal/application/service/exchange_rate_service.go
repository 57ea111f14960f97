package service

import (
	"context"
	"fmt"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/domain/repository"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
)

// ExchangeRateService answers rate lookups for a currency pair
type ExchangeRateService struct {
	rates  repository.ExchangeRateRepository
	logger logger.Logger
}

// NewExchangeRateService creates a new exchange rate service
func NewExchangeRateService(rates repository.ExchangeRateRepository, log logger.Logger) *ExchangeRateService {
	return &ExchangeRateService{
		rates:  rates,
		logger: logger.OrDefault(log),
	}
}

// GetRate validates both codes and returns the rate for source→target
func (s *ExchangeRateService) GetRate(ctx context.Context, source, target string) (*entity.ExchangeRate, error) {
	source, err := entity.NormalizeCurrency("source", source)
	if err != nil {
		return nil, err
	}

	target, err = entity.NormalizeCurrency("target", target)
	if err != nil {
		return nil, err
	}

	rate, err := s.rates.FindRate(ctx, source, target)
	if err != nil {
		s.logger.Error("Failed to get exchange rate", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"source":     source,
			"target":     target,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	return rate, nil
}
