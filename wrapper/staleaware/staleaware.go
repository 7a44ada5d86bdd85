// Package staleaware adds stale marking support to any backend.Backend
// implementation that doesn't natively support it, by pairing the backend
// with a second backend used solely to record stale markers. This is useful
// for stale-while-revalidate (RFC 5861) bookkeeping on top of a backend that
// only offers Get/Set/Delete.
package staleaware

import (
	"context"

	"github.com/kordcache/httpcache/backend"
)

// Cache wraps an existing backend.Backend to add stale marking support. It
// uses a second backend instance to track stale entries.
type Cache struct {
	cache       backend.Backend
	staleMarker backend.Backend
}

// New wraps cache to add stale marking support, recording markers in marker.
// marker must not be nil.
func New(cache backend.Backend, marker backend.Backend) *Cache {
	return &Cache{cache: cache, staleMarker: marker}
}

// Get returns the response corresponding to key if present.
func (s *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.cache.Get(ctx, key)
}

// Set saves a response to the cache as key, clearing any stale marker.
func (s *Cache) Set(ctx context.Context, key string, responseBytes []byte) error {
	_ = s.staleMarker.Delete(ctx, key) //nolint:errcheck // best effort
	return s.cache.Set(ctx, key, responseBytes)
}

// Delete removes the value associated with the key from both backends.
func (s *Cache) Delete(ctx context.Context, key string) error {
	_ = s.staleMarker.Delete(ctx, key) //nolint:errcheck // best effort
	return s.cache.Delete(ctx, key)
}

// MarkStale marks a cached response as stale instead of deleting it.
func (s *Cache) MarkStale(ctx context.Context, key string) error {
	_, exists, err := s.cache.Get(ctx, key)
	if err != nil || !exists {
		return err
	}
	return s.staleMarker.Set(ctx, key, []byte{1})
}

// IsStale checks if a cached response has been marked as stale.
func (s *Cache) IsStale(ctx context.Context, key string) (bool, error) {
	_, exists, err := s.staleMarker.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetStale retrieves a stale cached response if it exists.
func (s *Cache) GetStale(ctx context.Context, key string) ([]byte, bool, error) {
	isStale, err := s.IsStale(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !isStale {
		return nil, false, nil
	}
	return s.cache.Get(ctx, key)
}
