package cache

import (
	"context"
	"sync"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
)

// CacheEntry represents a cached exchange rate with the time it was stored
type CacheEntry struct {
	Rate      entity.ExchangeRate
	Timestamp time.Time
}

// MemoryRateStore provides a thread-safe in-memory store for exchange rates.
// Entries never expire unless an expiration is set.
type MemoryRateStore struct {
	cache      map[string]CacheEntry
	expiration time.Duration
	mutex      sync.RWMutex
	now        func() time.Time
}

// NewMemoryRateStore creates a new in-memory rate store
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{
		cache: make(map[string]CacheEntry),
		now:   time.Now,
	}
}

// Get retrieves an exchange rate if present and not expired
func (s *MemoryRateStore) Get(_ context.Context, key string) (*entity.ExchangeRate, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.cache[key]
	if !exists || s.expired(entry) {
		return nil, false, nil
	}

	rate := entry.Rate
	return &rate, true, nil
}

// Set stores an exchange rate under key
func (s *MemoryRateStore) Set(_ context.Context, key string, rate *entity.ExchangeRate) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cache[key] = CacheEntry{
		Rate:      *rate,
		Timestamp: s.now(),
	}
	return nil
}

// Delete removes key from the store
func (s *MemoryRateStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.cache, key)
	return nil
}

// Len returns the number of items in the store, expired ones included
func (s *MemoryRateStore) Len(_ context.Context) (int, error) {
	return s.Size(), nil
}

// Clear clears all entries from the store
func (s *MemoryRateStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cache = make(map[string]CacheEntry)
}

// SetExpiration sets the entry lifetime; zero or negative disables expiry
func (s *MemoryRateStore) SetExpiration(duration time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.expiration = duration
}

// Size returns the number of items in the store
func (s *MemoryRateStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.cache)
}

// CleanExpired removes expired entries and returns how many were removed
func (s *MemoryRateStore) CleanExpired() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	count := 0
	for key, entry := range s.cache {
		if s.expired(entry) {
			delete(s.cache, key)
			count++
		}
	}

	return count
}

// expired must be called with the mutex held
func (s *MemoryRateStore) expired(entry CacheEntry) bool {
	if s.expiration <= 0 {
		return false
	}
	return s.now().Sub(entry.Timestamp) > s.expiration
}
