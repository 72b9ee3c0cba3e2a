// Package cache provides the read-through memo layer used to decorate the
// analysis stores: a CacheService interface for get-or-fetch semantics and a
// KeySerializer that builds stable keys from method names and arguments.
//
// The default service implementation (see NewCacheService) is backed by
// sturdyc and is purely in-process; it memoizes reads only. Writes never go
// through this layer, so the relational store's uniqueness arbitration is
// unaffected by caching.
//
//	service, err := cache.NewCacheService(cache.DefaultConfig())
//	serializer := cache.NewDefaultKeySerializer()
//	rec, err := cache.GetOrFetch(ctx, service, key, func(ctx context.Context) (*store.CachedResult, error) {
//		return results.Lookup(ctx, analysisKey)
//	})
package cache
