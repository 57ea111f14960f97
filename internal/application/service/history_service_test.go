package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_Find(t *testing.T) {
	ctx := context.Background()
	stored := &entity.ConversionTransaction{TransactionID: "abc", SourceCurrency: "USD", TargetCurrency: "EUR"}

	t.Run("By transaction id", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		repo.On("FindByTransactionID", mock.Anything, "abc").Return(stored, nil)
		svc := NewHistoryService(repo, nil)

		page, err := svc.Find(ctx, HistoryQuery{TransactionID: "abc", TransactionDate: "2024-05-10"})

		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "abc", page.Items[0].TransactionID)
		repo.AssertNotCalled(t, "FindByDateRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown transaction id", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		repo.On("FindByTransactionID", mock.Anything, "missing").
			Return(nil, errors.Join(errors.New("transaction missing"), apperror.ErrNotFound))
		svc := NewHistoryService(repo, nil)

		page, err := svc.Find(ctx, HistoryQuery{TransactionID: "missing"})

		assert.Nil(t, page)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("By date covers the whole UTC day", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		end := start.Add(24*time.Hour - time.Nanosecond)
		repo.On("FindByDateRange", mock.Anything, start, end, 2, 25).
			Return(&entity.TransactionPage{Items: []*entity.ConversionTransaction{stored}, Page: 2, Size: 25, Total: 51}, nil)
		svc := NewHistoryService(repo, nil)

		page, err := svc.Find(ctx, HistoryQuery{TransactionDate: "2024-05-10", Page: 2, Size: 25})

		require.NoError(t, err)
		assert.Equal(t, 51, page.Total)
		repo.AssertExpectations(t)
	})

	t.Run("Date with no transactions", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		repo.On("FindByDateRange", mock.Anything, mock.Anything, mock.Anything, 0, DefaultPageSize).
			Return(&entity.TransactionPage{Items: []*entity.ConversionTransaction{}, Size: DefaultPageSize}, nil)
		svc := NewHistoryService(repo, nil)

		page, err := svc.Find(ctx, HistoryQuery{TransactionDate: "1999-01-01", Size: DefaultPageSize})

		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("Invalid queries", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		svc := NewHistoryService(repo, nil)

		queries := map[string]HistoryQuery{
			"no filter":      {Size: 10},
			"bad date":       {TransactionDate: "10/05/2024", Size: 10},
			"negative page":  {TransactionDate: "2024-05-10", Page: -1, Size: 10},
			"zero size":      {TransactionDate: "2024-05-10", Size: 0},
			"oversized page": {TransactionDate: "2024-05-10", Size: MaxPageSize + 1},
		}

		for name, q := range queries {
			_, err := svc.Find(ctx, q)
			assert.True(t, errors.Is(err, apperror.ErrValidation), name)
		}
		repo.AssertNotCalled(t, "FindByDateRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Store failure", func(t *testing.T) {
		repo := new(mocks.MockTransactionRepository)
		repo.On("FindByDateRange", mock.Anything, mock.Anything, mock.Anything, 0, 10).
			Return(nil, apperror.Persistence("find transactions by date", errors.New("io error")))
		svc := NewHistoryService(repo, nil)

		_, err := svc.Find(ctx, HistoryQuery{TransactionDate: "2024-05-10", Size: 10})

		assert.True(t, errors.Is(err, apperror.ErrPersistence))
	})
}
