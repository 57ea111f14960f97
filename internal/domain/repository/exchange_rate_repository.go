// Package repository defines storage and lookup contracts of the domain
package repository

import (
	"context"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
)

// ExchangeRateRepository defines the interface for cached exchange rate access
type ExchangeRateRepository interface {
	// FindRate returns the rate for an ordered, already normalized currency pair
	FindRate(ctx context.Context, source, target string) (*entity.ExchangeRate, error)
}
