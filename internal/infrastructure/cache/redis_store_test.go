package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisRateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateStore(client, ttl), mr
}

func TestRedisRateStore(t *testing.T) {
	ctx := context.Background()
	rate := &entity.ExchangeRate{Source: "USD", Target: "EUR", Rate: decimal.RequireFromString("0.92345678")}

	t.Run("Missing key is absent", func(t *testing.T) {
		// Setup
		store, _ := newTestRedisStore(t, time.Minute)

		// Execute
		got, ok, err := store.Get(ctx, "USD:EUR")

		// Assert
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Set then Get keeps full precision", func(t *testing.T) {
		store, mr := newTestRedisStore(t, time.Minute)

		require.NoError(t, store.Set(ctx, "USD:EUR", rate))

		got, ok, err := store.Get(ctx, "USD:EUR")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "USD", got.Source)
		assert.Equal(t, "EUR", got.Target)
		assert.Equal(t, "0.92345678", got.Rate.String())
		assert.True(t, mr.Exists(redisKeyPrefix+"USD:EUR"))
		assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"USD:EUR"))
	})

	t.Run("Entries expire after the ttl", func(t *testing.T) {
		store, mr := newTestRedisStore(t, time.Minute)
		require.NoError(t, store.Set(ctx, "USD:EUR", rate))

		mr.FastForward(time.Minute + time.Second)

		_, ok, err := store.Get(ctx, "USD:EUR")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Zero ttl keeps entries", func(t *testing.T) {
		store, mr := newTestRedisStore(t, 0)
		require.NoError(t, store.Set(ctx, "USD:EUR", rate))

		mr.FastForward(24 * time.Hour)

		_, ok, err := store.Get(ctx, "USD:EUR")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, mr.TTL(redisKeyPrefix+"USD:EUR"))
	})

	t.Run("Undecodable value is an error", func(t *testing.T) {
		store, mr := newTestRedisStore(t, time.Minute)
		require.NoError(t, mr.Set(redisKeyPrefix+"USD:EUR", "not json"))

		got, ok, err := store.Get(ctx, "USD:EUR")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode cached rate USD:EUR")
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Len counts only rate keys", func(t *testing.T) {
		store, mr := newTestRedisStore(t, time.Minute)
		require.NoError(t, store.Set(ctx, "USD:EUR", rate))
		require.NoError(t, store.Set(ctx, "USD:GBP", rate))
		require.NoError(t, mr.Set("unrelated", "x"))

		n, err := store.Len(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("Delete removes the key", func(t *testing.T) {
		store, _ := newTestRedisStore(t, time.Minute)
		require.NoError(t, store.Set(ctx, "USD:EUR", rate))

		require.NoError(t, store.Delete(ctx, "USD:EUR"))

		_, ok, err := store.Get(ctx, "USD:EUR")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Server errors are wrapped", func(t *testing.T) {
		store, mr := newTestRedisStore(t, time.Minute)
		mr.SetError("LOADING server is loading")

		_, _, err := store.Get(ctx, "USD:EUR")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis get USD:EUR")

		err = store.Set(ctx, "USD:EUR", rate)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis set USD:EUR")
	})
}

// Requires a reachable Redis; set REDIS_ADDR to run it
func TestRedisRateStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisRateStore(client, time.Minute)
	key := "TST:XTS"
	defer store.Delete(ctx, key)

	rate := &entity.ExchangeRate{Source: "TST", Target: "XTS", Rate: decimal.RequireFromString("1.23456789")}
	require.NoError(t, store.Set(ctx, key, rate))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.23456789", got.Rate.String())
}
