package service

import (
	"context"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
)

// RateSource defines the interface for an external exchange rate provider
type RateSource interface {
	// FetchRate issues a single provider lookup for an ordered currency pair.
	// Failures are returned as *apperror.ProviderError.
	FetchRate(ctx context.Context, source, target string) (*entity.ExchangeRate, error)
}
