package cache

import (
	"context"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
)

// RateStore is the key/value storage behind ExchangeRateCache.
// Keys are produced by entity.PairKey.
type RateStore interface {
	// Get returns the stored rate and whether the key was present
	Get(ctx context.Context, key string) (*entity.ExchangeRate, bool, error)
	Set(ctx context.Context, key string, rate *entity.ExchangeRate) error
	Delete(ctx context.Context, key string) error
	Len(ctx context.Context) (int, error)
}
