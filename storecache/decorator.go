// Package storecache decorates the result cache with an in-process
// read-through memo layer. Reads (Lookup, List) are served via the cache
// service with their keys tracked for invalidation; writes pass straight
// through to the base store and then invalidate the read keys, so the
// relational uniqueness arbitration is never bypassed or weakened.
package storecache

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-analysis-store/cache"
	"github.com/goliatone/go-analysis-store/resultcache"
	"github.com/goliatone/go-analysis-store/store"
)

// ResultStore is the operation surface of the result cache.
type ResultStore interface {
	Lookup(ctx context.Context, key store.AnalysisKey) (*store.CachedResult, error)
	Save(ctx context.Context, p resultcache.SaveParams) (*store.CachedResult, error)
	List(ctx context.Context, q resultcache.ListQuery) ([]*store.CachedResult, error)
	BatchCreate(ctx context.Context, entries []resultcache.SaveParams) ([]*store.CachedResult, error)
	BatchDelete(ctx context.Context, sessionID string, ids []int64) (int64, error)
}

// Interface assertions: the base store and its decorated form are
// interchangeable.
var (
	_ ResultStore = (*resultcache.Cache)(nil)
	_ ResultStore = (*CachedResultStore)(nil)
)

// CachedResultStore decorates a base ResultStore with memoized reads.
type CachedResultStore struct {
	base          ResultStore
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	keyRegistry   *xsync.MapOf[string, struct{}]
}

// New wraps base with the given cache service and key serializer.
func New(base ResultStore, cacheService cache.CacheService, keySerializer cache.KeySerializer) *CachedResultStore {
	return &CachedResultStore{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		keyRegistry:   xsync.NewMapOf[string, struct{}](),
	}
}

// Lookup serves the live row for the key through the memo layer. A miss is
// memoized too (as a nil record) so hot negative lookups skip the store.
func (c *CachedResultStore) Lookup(ctx context.Context, key store.AnalysisKey) (*store.CachedResult, error) {
	k := c.keySerializer.SerializeKey("Lookup", key)
	c.trackKey(k)
	return cache.GetOrFetch(ctx, c.cache, k, func(ctx context.Context) (*store.CachedResult, error) {
		return c.base.Lookup(ctx, key)
	})
}

// List serves the session listing through the memo layer.
func (c *CachedResultStore) List(ctx context.Context, q resultcache.ListQuery) ([]*store.CachedResult, error) {
	k := c.keySerializer.SerializeKey("List", q)
	c.trackKey(k)
	return cache.GetOrFetch(ctx, c.cache, k, func(ctx context.Context) ([]*store.CachedResult, error) {
		return c.base.List(ctx, q)
	})
}

// Save passes through to the base store; its lookup-or-create decision and
// conflict recovery always run against the relational store. Read keys are
// invalidated on success.
func (c *CachedResultStore) Save(ctx context.Context, p resultcache.SaveParams) (*store.CachedResult, error) {
	rec, err := c.base.Save(ctx, p)
	if err == nil {
		c.invalidateReads(ctx)
	}
	return rec, err
}

// BatchCreate passes through and invalidates read keys on success.
func (c *CachedResultStore) BatchCreate(ctx context.Context, entries []resultcache.SaveParams) ([]*store.CachedResult, error) {
	recs, err := c.base.BatchCreate(ctx, entries)
	if err == nil {
		c.invalidateReads(ctx)
	}
	return recs, err
}

// BatchDelete passes through and invalidates read keys on success.
func (c *CachedResultStore) BatchDelete(ctx context.Context, sessionID string, ids []int64) (int64, error) {
	deleted, err := c.base.BatchDelete(ctx, sessionID, ids)
	if err == nil {
		c.invalidateReads(ctx)
	}
	return deleted, err
}

// trackKey registers a cache key for later invalidation.
func (c *CachedResultStore) trackKey(key string) {
	c.keyRegistry.Store(key, struct{}{})
}

// invalidateReads drops every tracked Lookup and List key.
func (c *CachedResultStore) invalidateReads(ctx context.Context) {
	c.invalidateByPrefix(ctx, "Lookup"+cache.KeySeparator)
	c.invalidateByPrefix(ctx, "List"+cache.KeySeparator)
}

func (c *CachedResultStore) invalidateByPrefix(ctx context.Context, prefix string) {
	var keys []string
	c.keyRegistry.Range(func(k string, _ struct{}) bool {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
		return true
	})
	for _, k := range keys {
		_ = c.cache.Delete(ctx, k)
		c.keyRegistry.Delete(k)
	}
}
