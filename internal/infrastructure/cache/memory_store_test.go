package cache

import (
	"context"
	"testing"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRateStore()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	assert.Equal(t, 0, store.Size())

	rate := &entity.ExchangeRate{Source: "USD", Target: "EUR", Rate: decimal.RequireFromString("0.92")}
	require.NoError(t, store.Set(ctx, "USD:EUR", rate))
	assert.Equal(t, 1, store.Size())

	t.Run("Get returns a copy", func(t *testing.T) {
		got, ok, err := store.Get(ctx, "USD:EUR")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, rate.Rate.Equal(got.Rate))

		got.Rate = decimal.NewFromInt(5)
		again, _, _ := store.Get(ctx, "USD:EUR")
		assert.Equal(t, "0.92", again.Rate.String())
	})

	t.Run("Missing key", func(t *testing.T) {
		got, ok, err := store.Get(ctx, "EUR:USD")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("No expiry by default", func(t *testing.T) {
		now = now.Add(365 * 24 * time.Hour)
		_, ok, _ := store.Get(ctx, "USD:EUR")
		assert.True(t, ok)
	})

	t.Run("Expiration", func(t *testing.T) {
		store.SetExpiration(time.Minute)
		now = now.Add(2 * time.Minute)

		_, ok, _ := store.Get(ctx, "USD:EUR")
		assert.False(t, ok)

		assert.Equal(t, 1, store.CleanExpired())
		assert.Equal(t, 0, store.Size())
		store.SetExpiration(0)
	})

	t.Run("Delete and Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "USD:EUR", rate))
		require.NoError(t, store.Set(ctx, "EUR:USD", rate))

		require.NoError(t, store.Delete(ctx, "USD:EUR"))
		n, err := store.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		store.Clear()
		assert.Equal(t, 0, store.Size())
	})
}
