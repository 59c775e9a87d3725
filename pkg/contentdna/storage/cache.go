package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// DefaultCacheSize is the number of hash buckets kept by CachedStore.
const DefaultCacheSize = 1 << 16

// CachedStore serves repeated audio hash lookups from an LRU cache and
// forwards everything else to the wrapped Store. Writes and deletes purge the
// cache.
type CachedStore struct {
	Store
	cache *lru.Cache[models.HashValue, []models.HashRow]
}

// NewCachedStore wraps store with a cache of size hash buckets.
func NewCachedStore(store Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[models.HashValue, []models.HashRow](size)
	if err != nil {
		return nil, fmt.Errorf("creating lookup cache: %w", err)
	}
	return &CachedStore{Store: store, cache: cache}, nil
}

func (s *CachedStore) LookupAudioHashes(ctx context.Context, hashes []models.HashValue) ([]models.HashRow, error) {
	var out []models.HashRow
	var missing []models.HashValue
	for _, h := range uniqueHashes(hashes) {
		if rows, ok := s.cache.Get(h); ok {
			out = append(out, rows...)
			continue
		}
		missing = append(missing, h)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.Store.LookupAudioHashes(ctx, missing)
	if err != nil {
		return nil, err
	}

	buckets := make(map[models.HashValue][]models.HashRow, len(missing))
	for _, r := range fetched {
		buckets[r.Hash] = append(buckets[r.Hash], r)
	}
	// misses are cached too so absent hashes skip the store next time
	for _, h := range missing {
		s.cache.Add(h, buckets[h])
	}
	return append(out, fetched...), nil
}

func (s *CachedStore) StoreAudioHashes(ctx context.Context, rows []models.HashRow) error {
	defer s.cache.Purge()
	return s.Store.StoreAudioHashes(ctx, rows)
}

func (s *CachedStore) DeleteContentByID(ctx context.Context, contentID string) error {
	defer s.cache.Purge()
	return s.Store.DeleteContentByID(ctx, contentID)
}

// CacheLen returns the number of cached hash buckets.
func (s *CachedStore) CacheLen() int {
	return s.cache.Len()
}
