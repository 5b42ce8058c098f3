// Package loader provides back-source loading for cache misses.
// The catalog fetcher uses it to serve repeated remote calls from the local cache
// while collapsing concurrent misses for the same key into one remote call.
//
// Package loader 提供缓存未命中时的回源加载。
// 目录获取器使用它从本地缓存响应重复的远程调用，
// 同时将同一键的并发未命中合并为一次远程调用。
package loader

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yourusername/storefront/pkg/cache"
)

// Loader is the interface that wraps the basic Load method.
//
// Load retrieves data for the given key from a data source.
// It returns the loaded value, a TTL for the cache entry, and any error encountered.
// If the returned TTL is zero, the cache's default TTL will be used.
//
// Loader 是包装基本Load方法的接口。
//
// Load 从数据源检索给定键的数据。
// 它返回加载的值、缓存条目的TTL以及遇到的任何错误。
// 如果返回的TTL为零，将使用缓存的默认TTL。
type Loader[T any] interface {
	Load(ctx context.Context, key string) (value T, ttl time.Duration, err error)
}

// LoaderFunc is a function type that implements the Loader interface.
//
// LoaderFunc 是实现Loader接口的函数类型。
type LoaderFunc[T any] func(ctx context.Context, key string) (T, time.Duration, error)

// Load calls the function itself.
//
// Load 调用函数本身。
func (f LoaderFunc[T]) Load(ctx context.Context, key string) (T, time.Duration, error) {
	return f(ctx, key)
}

// NewFunctionLoaderWithTTL creates a new Loader from a function that retrieves data
// and always reports the given TTL. A zero TTL means the cache default.
//
// NewFunctionLoaderWithTTL 从检索数据的函数创建一个新的Loader，并始终报告给定的TTL。
func NewFunctionLoaderWithTTL[T any](ttl time.Duration, fn func(ctx context.Context, key string) (T, error)) Loader[T] {
	return LoaderFunc[T](func(ctx context.Context, key string) (T, time.Duration, error) {
		value, err := fn(ctx, key)
		return value, ttl, err
	})
}

// Observer receives cache hit/miss notifications from a CachedLoader.
//
// Observer 接收来自CachedLoader的缓存命中/未命中通知。
type Observer interface {
	OnHit(key string)
	OnMiss(key string)
}

// Option configures a CachedLoader.
//
// Option 配置CachedLoader。
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds each shared backend call. The shared call outlives the
// caller that started it, so without a bound a stuck backend is never abandoned.
//
// WithTimeout 限制每次共享的后端调用时长。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// CachedLoader wraps a loader with an ICache to reduce load on the backend.
// Errors are never cached.
//
// A miss is loaded once for all concurrent callers of the same key. The load
// runs detached from any single caller's cancellation; each caller stops
// waiting when its own context ends.
//
// CachedLoader 用ICache包装加载器，以减轻后端负载。错误永远不会被缓存。
// 同一键的并发未命中只加载一次。加载不随任何一个调用方取消，每个调用方在自己的上下文结束时停止等待。
type CachedLoader[T any] struct {
	backend  Loader[T]
	cache    cache.ICache
	group    singleflight.Group
	observer Observer
	timeout  time.Duration
}

// NewCachedLoader creates a new CachedLoader with the given backend loader and cache.
//
// NewCachedLoader 使用给定的后端加载器和缓存创建一个新的CachedLoader。
//
// Parameters:
//   - backend: The loader consulted on a miss
//   - c: The cache holding loaded values
//   - observer: Optional hit/miss observer, may be nil
//   - opts: Optional settings such as WithTimeout
//
// Returns:
//   - *CachedLoader[T]: A new cached loader
func NewCachedLoader[T any](backend Loader[T], c cache.ICache, observer Observer, opts ...Option) *CachedLoader[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &CachedLoader[T]{
		backend:  backend,
		cache:    c,
		observer: observer,
		timeout:  o.timeout,
	}
}

// Load returns the cached value for key, loading it from the backend on a miss.
//
// Load 返回key的缓存值，未命中时从后端加载。
func (c *CachedLoader[T]) Load(ctx context.Context, key string) (T, time.Duration, error) {
	return c.LoadWith(ctx, key, c.backend)
}

// LoadWith is Load with a per-call backend. It lets callers whose backend call
// needs arguments beyond the key share one cache and one singleflight group.
//
// LoadWith 与Load相同，但使用按调用指定的后端。
//
// Parameters:
//   - ctx: Context for the operation
//   - key: The cache key
//   - backend: The loader consulted on a miss
//
// Returns:
//   - T: The loaded or cached value
//   - time.Duration: Always zero
//   - error: The backend error (never cached) or ctx.Err() when the caller gives up
func (c *CachedLoader[T]) LoadWith(ctx context.Context, key string, backend Loader[T]) (T, time.Duration, error) {
	var zero T

	// Try to get from cache first
	// 首先尝试从缓存获取
	if value, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if typed, ok := value.(T); ok {
			c.hit(key)
			return typed, 0, nil
		}
	}
	c.miss(key)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// 共享调用只保留ctx中的值，不继承其取消
		lctx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, c.timeout)
			defer cancel()
		}

		value, ttl, err := backend.Load(lctx, key)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(lctx, key, value, ttl); err != nil {
			return nil, fmt.Errorf("failed to cache %s: %w", key, err)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, 0, res.Err
		}
		return res.Val.(T), 0, nil
	}
}

// Invalidate drops the cached value for key.
//
// Invalidate 删除key的缓存值。
func (c *CachedLoader[T]) Invalidate(ctx context.Context, key string) error {
	_, err := c.cache.Delete(ctx, key)
	return err
}

func (c *CachedLoader[T]) hit(key string) {
	if c.observer != nil {
		c.observer.OnHit(key)
	}
}

func (c *CachedLoader[T]) miss(key string) {
	if c.observer != nil {
		c.observer.OnMiss(key)
	}
}
