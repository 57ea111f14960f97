package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "forex:rate:"

// RedisRateStore keeps exchange rates in Redis so several instances share one cache
type RedisRateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRateStore creates a Redis-backed store; a zero ttl keeps entries forever
func NewRedisRateStore(client *redis.Client, ttl time.Duration) *RedisRateStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisRateStore{client: client, ttl: ttl}
}

// Get retrieves an exchange rate; a missing key is reported as absent, not as an error
func (s *RedisRateStore) Get(ctx context.Context, key string) (*entity.ExchangeRate, bool, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var rate entity.ExchangeRate
	if err := json.Unmarshal(val, &rate); err != nil {
		return nil, false, fmt.Errorf("decode cached rate %s: %w", key, err)
	}

	return &rate, true, nil
}

// Set stores an exchange rate under key
func (s *RedisRateStore) Set(ctx context.Context, key string, rate *entity.ExchangeRate) error {
	val, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("encode rate %s: %w", key, err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key from Redis
func (s *RedisRateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Len counts the rate keys held in Redis
func (s *RedisRateStore) Len(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}
