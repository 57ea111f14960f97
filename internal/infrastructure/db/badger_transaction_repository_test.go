package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()

	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func newTransaction(id string, at time.Time) *entity.ConversionTransaction {
	return &entity.ConversionTransaction{
		TransactionID:   id,
		SourceCurrency:  "USD",
		TargetCurrency:  "EUR",
		OriginalAmount:  decimal.RequireFromString("100.0000"),
		ConvertedAmount: decimal.RequireFromString("92.0000"),
		ExchangeRate:    decimal.RequireFromString("0.92"),
		TransactionDate: at,
	}
}

func TestBadgerTransactionRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewBadgerTransactionRepository(setupTestDB(t), nil)

	at := time.Date(2024, 5, 10, 14, 30, 0, 123, time.UTC)
	tx := newTransaction("a1b2c3", at)

	t.Run("Save then find", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, tx))

		found, err := repo.FindByTransactionID(ctx, "a1b2c3")
		require.NoError(t, err)
		assert.Equal(t, tx.TransactionID, found.TransactionID)
		assert.Equal(t, "USD", found.SourceCurrency)
		assert.True(t, tx.ConvertedAmount.Equal(found.ConvertedAmount))
		assert.True(t, tx.ExchangeRate.Equal(found.ExchangeRate))
		assert.True(t, at.Equal(found.TransactionDate))
	})

	t.Run("Rate keeps full provider precision", func(t *testing.T) {
		precise := newTransaction("precise-rate", at)
		precise.ExchangeRate = decimal.RequireFromString("0.923456789123")
		require.NoError(t, repo.Save(ctx, precise))

		found, err := repo.FindByTransactionID(ctx, "precise-rate")
		require.NoError(t, err)
		assert.Equal(t, "0.923456789123", found.ExchangeRate.String())
	})

	t.Run("Duplicate id is rejected", func(t *testing.T) {
		err := repo.Save(ctx, newTransaction("a1b2c3", at.Add(time.Hour)))

		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrPersistence))
		assert.True(t, errors.Is(err, ErrDuplicateTransaction))
	})

	t.Run("Unknown id", func(t *testing.T) {
		found, err := repo.FindByTransactionID(ctx, "missing")

		assert.Nil(t, found)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := repo.Save(cancelled, newTransaction("other", at))
		assert.True(t, errors.Is(err, apperror.ErrPersistence))
	})
}

func TestBadgerTransactionRepository_FindByDateRange(t *testing.T) {
	ctx := context.Background()
	repo := NewBadgerTransactionRepository(setupTestDB(t), nil)

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, newTransaction(fmt.Sprintf("day-%d", i), day.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, repo.Save(ctx, newTransaction("before", day.Add(-time.Nanosecond))))
	require.NoError(t, repo.Save(ctx, newTransaction("after", day.Add(24*time.Hour))))

	start := day
	end := day.Add(24*time.Hour - time.Nanosecond)

	t.Run("Whole day, one page", func(t *testing.T) {
		page, err := repo.FindByDateRange(ctx, start, end, 0, 10)

		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		require.Len(t, page.Items, 5)
		for i, tx := range page.Items {
			assert.Equal(t, fmt.Sprintf("day-%d", i), tx.TransactionID, "items are ordered by date")
		}
	})

	t.Run("Paging", func(t *testing.T) {
		page, err := repo.FindByDateRange(ctx, start, end, 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "day-2", page.Items[0].TransactionID)
		assert.Equal(t, "day-3", page.Items[1].TransactionID)

		last, err := repo.FindByDateRange(ctx, start, end, 2, 2)
		require.NoError(t, err)
		require.Len(t, last.Items, 1)
		assert.Equal(t, "day-4", last.Items[0].TransactionID)

		beyond, err := repo.FindByDateRange(ctx, start, end, 9, 2)
		require.NoError(t, err)
		assert.Empty(t, beyond.Items)
		assert.Equal(t, 5, beyond.Total)
	})

	t.Run("Huge page does not wrap to the first page", func(t *testing.T) {
		// page*size overflows int
		page, err := repo.FindByDateRange(ctx, start, end, math.MaxInt/4+1, 4)

		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 5, page.Total)

		page, err = repo.FindByDateRange(ctx, start, end, math.MaxInt, 100)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("Empty range", func(t *testing.T) {
		other := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		page, err := repo.FindByDateRange(ctx, other, other.Add(24*time.Hour-time.Nanosecond), 0, 10)

		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
	})

	t.Run("Non-UTC bounds are normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		page, err := repo.FindByDateRange(ctx, start.In(loc), end.In(loc), 0, 10)

		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
	})
}
