package cache

import "context"

// KeySerializer builds a cache key from a method name plus arbitrary args.
// It must produce stable keys across calls within a process.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from
// the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through operations the store decorator
// needs. It is exported so alternate cache backends can be plugged in. The
// fetch parameter is the unnamed function type so implementations do not
// need to import this package.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn func(ctx context.Context) (any, error)) (any, error)
	Delete(ctx context.Context, key string) error
}

// GetOrFetch is the type-safe wrapper around CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if result == nil {
		// A nil interface cached for a miss still asserts cleanly to the
		// zero value of pointer and interface types.
		var zero T
		return zero, nil
	}
	return result.(T), nil
}
