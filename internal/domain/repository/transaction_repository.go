package repository

import (
	"context"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
)

// TransactionRepository defines the interface for conversion transaction storage
type TransactionRepository interface {
	// Save persists a new transaction; the transaction ID must be unique
	Save(ctx context.Context, tx *entity.ConversionTransaction) error

	// FindByTransactionID retrieves a transaction or returns apperror.ErrNotFound
	FindByTransactionID(ctx context.Context, id string) (*entity.ConversionTransaction, error)

	// FindByDateRange returns one page of transactions dated within [start, end]
	FindByDateRange(ctx context.Context, start, end time.Time, page, size int) (*entity.TransactionPage, error)
}
