package cache

import (
	"context"
	"sync"
	"time"

	"vetdesk/internal/models"
)

// ResultCache keeps validation results keyed by normalized address.
type ResultCache interface {
	Get(ctx context.Context, email string) (models.ValidationResult, bool)
	Set(ctx context.Context, email string, r models.ValidationResult, ttl time.Duration) error
}

// Item represents a cached value with an expiration time.
type Item struct {
	Value      models.ValidationResult
	Expiration int64
}

// Store is a thread-safe in-memory cache.
type Store struct {
	items map[string]Item
	mu    sync.RWMutex
}

func New() *Store {
	return &Store{
		items: make(map[string]Item),
	}
}

// Set adds a value to the cache with a specific TTL.
func (s *Store) Set(_ context.Context, key string, value models.ValidationResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = Item{
		Value:      value,
		Expiration: time.Now().Add(ttl).UnixNano(),
	}
	return nil
}

// Get retrieves a value. Returns false if the item exists but is expired.
func (s *Store) Get(_ context.Context, key string) (models.ValidationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, found := s.items[key]
	if !found {
		return models.ValidationResult{}, false
	}

	if time.Now().UnixNano() > item.Expiration {
		return models.ValidationResult{}, false
	}

	return item.Value, true
}

// Len counts stored items, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Cleanup removes expired items.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	for k, v := range s.items {
		if now > v.Expiration {
			delete(s.items, k)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
