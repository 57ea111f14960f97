// Package db contains the BadgerDB backed transaction store
package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/dgraph-io/badger/v3"
)

const (
	txPrefix   = "tx:"
	datePrefix = "txdate:"

	// dateKeyLayout is fixed width so index keys sort chronologically
	dateKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrDuplicateTransaction is returned when a transaction ID is already stored
var ErrDuplicateTransaction = errors.New("duplicate transaction id")

// Open opens (creating if needed) the Badger database under dir
func Open(dir string) (*badger.DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable Badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// BadgerTransactionRepository implements the transaction repository interface using BadgerDB.
// Each transaction is stored as JSON under tx:<id> plus an empty date index
// entry under txdate:<timestamp>:<id>.
type BadgerTransactionRepository struct {
	db     *badger.DB
	logger logger.Logger
}

// NewBadgerTransactionRepository creates a new BadgerDB transaction repository
func NewBadgerTransactionRepository(db *badger.DB, log logger.Logger) *BadgerTransactionRepository {
	return &BadgerTransactionRepository{
		db:     db,
		logger: logger.OrDefault(log),
	}
}

// Save persists a new transaction and its date index entry atomically
func (r *BadgerTransactionRepository) Save(ctx context.Context, tx *entity.ConversionTransaction) error {
	if err := ctx.Err(); err != nil {
		return apperror.Persistence("save transaction", err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return apperror.Persistence("marshal transaction", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := transactionKey(tx.TransactionID)

		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.TransactionID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(dateIndexKey(tx.TransactionDate, tx.TransactionID), nil)
	})
	if err != nil {
		r.logger.Error("Failed to store transaction", map[string]interface{}{
			"request_id":     middleware.GetRequestID(ctx),
			"transaction_id": tx.TransactionID,
			"error":          err.Error(),
		})
		return apperror.Persistence("save transaction", err)
	}

	return nil
}

// FindByTransactionID retrieves a transaction by its unique identifier
func (r *BadgerTransactionRepository) FindByTransactionID(ctx context.Context, id string) (*entity.ConversionTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Persistence("find transaction", err)
	}

	var tx entity.ConversionTransaction

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(transactionKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tx)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, apperror.Persistence("find transaction", err)
	}

	return &tx, nil
}

// FindByDateRange returns one page of transactions dated within [start, end],
// oldest first. Total counts every match, not just the page.
func (r *BadgerTransactionRepository) FindByDateRange(ctx context.Context, start, end time.Time, page, size int) (*entity.TransactionPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Persistence("find transactions by date", err)
	}

	result := &entity.TransactionPage{
		Items: []*entity.ConversionTransaction{},
		Page:  page,
		Size:  size,
	}
	if size <= 0 || page < 0 || end.Before(start) {
		return result, nil
	}

	// A page past math.MaxInt/size cannot be reached; clamp instead of wrapping
	offset := math.MaxInt
	if page <= math.MaxInt/size {
		offset = page * size
	}
	lower := []byte(datePrefix + start.UTC().Format(dateKeyLayout))
	upper := []byte(datePrefix + end.UTC().Format(dateKeyLayout))

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(datePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(lower); it.ValidForPrefix([]byte(datePrefix)); it.Next() {
			key := it.Item().Key()
			if len(key) < len(upper) || bytes.Compare(key[:len(upper)], upper) > 0 {
				break
			}

			if result.Total >= offset && len(ids) < size {
				ids = append(ids, string(key[len(upper)+1:]))
			}
			result.Total++
		}

		for _, id := range ids {
			item, err := txn.Get(transactionKey(id))
			if err != nil {
				return fmt.Errorf("load transaction %s: %w", id, err)
			}

			var tx entity.ConversionTransaction
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &tx)
			}); err != nil {
				return fmt.Errorf("decode transaction %s: %w", id, err)
			}
			result.Items = append(result.Items, &tx)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Persistence("find transactions by date", err)
	}

	return result, nil
}

func transactionKey(id string) []byte {
	return []byte(txPrefix + id)
}

func dateIndexKey(t time.Time, id string) []byte {
	return []byte(datePrefix + t.UTC().Format(dateKeyLayout) + ":" + id)
}
