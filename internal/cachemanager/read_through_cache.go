package cachemanager

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/taskdeck/internal/log"
)

// LoadFunc produces the value for input on a cache miss.
type LoadFunc[V any, I any] func(ctx context.Context, input I) (V, error)

// ReadThroughCache serves values from cache and falls back to a LoadFunc on
// a miss, caching successful results. Errors are never cached. Concurrent
// misses for the same key share one load.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache  CacheManager[K, V]
	fn     LoadFunc[V, I]
	bypass bool
	group  singleflight.Group
}

// NewReadThroughCache wraps fn with cache. With bypass set every Get calls
// fn directly.
func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	fn LoadFunc[V, I],
	bypass bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:  cache,
		fn:     fn,
		bypass: bypass,
	}
}

// Get returns the cached value for key or loads it with input. The load
// keeps the values of the ctx that started it but not its cancellation, so
// one caller giving up does not fail the others. Every caller stops
// waiting when its own ctx ends.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.fn(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	// The shared load outlives any one caller; each caller still stops
	// waiting on its own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(string(key), func() (any, error) {
		// A load may have finished between the lookup above and joining the group.
		if value, ok := r.cache.Get(loadCtx, key); ok {
			return value, nil
		}
		value, err := r.fn(loadCtx, input)
		if err != nil {
			return value, err
		}
		r.cache.Set(loadCtx, key, value, ttl)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			log.Debug(log.CatCache, "shared in-flight load", "key", key)
		}
		value, _ := res.Val.(V)
		return value, res.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Invalidate drops keys so the next Get reloads them.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	for _, k := range keys {
		r.group.Forget(string(k))
	}
	return r.cache.Delete(ctx, keys...)
}
