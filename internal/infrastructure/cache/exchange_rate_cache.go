// Package cache provides the exchange-rate cache that sits in front of the provider
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/domain/service"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"golang.org/x/sync/singleflight"
)

// ExchangeRateCache returns exchange rates by ordered currency pair, calling
// the RateSource only on a miss. At most one provider call per pair is in
// flight at a time; concurrent callers for that pair share its result.
// Failed lookups are never stored.
type ExchangeRateCache struct {
	store   RateStore
	source  service.RateSource
	flight  singleflight.Group
	metrics *metrics.ForexMetrics
	logger  logger.Logger
}

// NewExchangeRateCache creates a new exchange rate cache
func NewExchangeRateCache(
	store RateStore,
	source service.RateSource,
	m *metrics.ForexMetrics,
	log logger.Logger,
) *ExchangeRateCache {
	if store == nil {
		store = NewMemoryRateStore()
	}

	return &ExchangeRateCache{
		store:   store,
		source:  source,
		metrics: m,
		logger:  logger.OrDefault(log),
	}
}

// FindRate returns the cached rate for source→target, fetching it on a miss
func (c *ExchangeRateCache) FindRate(ctx context.Context, source, target string) (*entity.ExchangeRate, error) {
	requestID := middleware.GetRequestID(ctx)
	key := entity.PairKey(source, target)

	if rate, ok := c.lookup(ctx, key, requestID); ok {
		c.metrics.RecordCacheLookup(true)
		c.logger.Debug("Exchange rate cache hit", map[string]interface{}{
			"request_id": requestID,
			"pair":       key,
		})
		return rate, nil
	}
	c.metrics.RecordCacheLookup(false)

	v, err, shared := c.flight.Do(key, func() (interface{}, error) {
		// A flight that finished just before this one may have filled the key
		if rate, ok := c.lookup(ctx, key, requestID); ok {
			return rate, nil
		}
		return c.fetch(ctx, source, target, key, requestID)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.Debug("Shared in-flight exchange rate lookup", map[string]interface{}{
			"request_id": requestID,
			"pair":       key,
		})
	}

	rate := *v.(*entity.ExchangeRate)
	return &rate, nil
}

// Invalidate drops the cached rate for source→target
func (c *ExchangeRateCache) Invalidate(ctx context.Context, source, target string) error {
	key := entity.PairKey(source, target)
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}

	c.logger.Info("Exchange rate invalidated", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"pair":       key,
	})
	return nil
}

// Size returns the number of cached pairs
func (c *ExchangeRateCache) Size(ctx context.Context) (int, error) {
	return c.store.Len(ctx)
}

// lookup treats a store read error as a miss
func (c *ExchangeRateCache) lookup(ctx context.Context, key, requestID string) (*entity.ExchangeRate, bool) {
	rate, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Exchange rate cache read failed", map[string]interface{}{
			"request_id": requestID,
			"pair":       key,
			"error":      err.Error(),
		})
		return nil, false
	}
	return rate, ok
}

func (c *ExchangeRateCache) fetch(ctx context.Context, source, target, key, requestID string) (*entity.ExchangeRate, error) {
	// The shared call serves every waiter, so one caller going away must not cancel it
	fetchCtx := context.WithoutCancel(ctx)

	startTime := time.Now()
	rate, err := c.source.FetchRate(fetchCtx, source, target)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Exchange rate fetch failed", map[string]interface{}{
			"request_id":  requestID,
			"pair":        key,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, err
	}

	if err := c.store.Set(fetchCtx, key, rate); err != nil {
		c.logger.Warn("Exchange rate cache write failed", map[string]interface{}{
			"request_id": requestID,
			"pair":       key,
			"error":      err.Error(),
		})
	}

	c.logger.Info("Exchange rate fetched", map[string]interface{}{
		"request_id":  requestID,
		"pair":        key,
		"rate":        rate.Rate.String(),
		"duration_ms": duration.Milliseconds(),
	})

	return rate, nil
}
