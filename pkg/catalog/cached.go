package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yourusername/storefront/pkg/cache"
	"github.com/yourusername/storefront/pkg/loader"
	"github.com/yourusername/storefront/pkg/model"
)

// TTLs sets how long each kind of response stays cached.
// Lists change more often than single products, so they expire sooner.
//
// TTLs 设置每类响应的缓存时长。
type TTLs struct {
	Products   time.Duration
	Product    time.Duration
	Categories time.Duration
}

// DefaultTTLs returns the default cache lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Products:   time.Minute,
		Product:    5 * time.Minute,
		Categories: 10 * time.Minute,
	}
}

// CachedFetcher is a cache-aside Fetcher. Concurrent misses for the same key
// share one remote call, and errors are never cached.
//
// Returned slices and responses are shared with the cache and must be treated
// as read-only.
//
// CachedFetcher 是旁路缓存的Fetcher。同一键的并发未命中共享一次远程调用，错误永远不会被缓存。
// 返回的切片和响应与缓存共享，必须视为只读。
type CachedFetcher struct {
	next  Fetcher
	cache cache.ICache
	ttls  TTLs

	all        *loader.CachedLoader[[]model.Product]
	lists      *loader.CachedLoader[*model.ProductsResponse]
	products   *loader.CachedLoader[model.Product]
	categories *loader.CachedLoader[[]model.Category]
}

// NewCachedFetcher wraps next with c.
//
// NewCachedFetcher 使用c包装next。
//
// Parameters:
//   - next: The fetcher consulted on a miss
//   - c: The cache holding responses
//   - ttls: Per-kind lifetimes
//   - observer: Optional hit/miss observer, may be nil
//   - opts: Loader options, e.g. loader.WithTimeout with the client timeout
//
// Returns:
//   - *CachedFetcher: A new cached fetcher
func NewCachedFetcher(next Fetcher, c cache.ICache, ttls TTLs, observer loader.Observer, opts ...loader.Option) *CachedFetcher {
	return &CachedFetcher{
		next:       next,
		cache:      c,
		ttls:       ttls,
		all:        loader.NewCachedLoader[[]model.Product](nil, c, observer, opts...),
		lists:      loader.NewCachedLoader[*model.ProductsResponse](nil, c, observer, opts...),
		products:   loader.NewCachedLoader[model.Product](nil, c, observer, opts...),
		categories: loader.NewCachedLoader[[]model.Category](nil, c, observer, opts...),
	}
}

// 缓存键
const (
	keyAllProducts = "products:all"
	keyCategories  = "categories"
)

// FetchAllProducts implements Fetcher.
func (f *CachedFetcher) FetchAllProducts(ctx context.Context) ([]model.Product, error) {
	v, _, err := f.all.LoadWith(ctx, keyAllProducts, loader.NewFunctionLoaderWithTTL(f.ttls.Products,
		func(ctx context.Context, _ string) ([]model.Product, error) {
			return f.next.FetchAllProducts(ctx)
		}))
	return v, err
}

// FetchProducts implements Fetcher.
func (f *CachedFetcher) FetchProducts(ctx context.Context, limit, skip int) (*model.ProductsResponse, error) {
	key := fmt.Sprintf("products:limit=%d:skip=%d", limit, skip)
	return f.list(ctx, key, func(ctx context.Context) (*model.ProductsResponse, error) {
		return f.next.FetchProducts(ctx, limit, skip)
	})
}

// SearchProducts implements Fetcher.
func (f *CachedFetcher) SearchProducts(ctx context.Context, query string) (*model.ProductsResponse, error) {
	return f.list(ctx, "search:"+query, func(ctx context.Context) (*model.ProductsResponse, error) {
		return f.next.SearchProducts(ctx, query)
	})
}

// FetchProductsByCategory implements Fetcher.
func (f *CachedFetcher) FetchProductsByCategory(ctx context.Context, slug string) (*model.ProductsResponse, error) {
	return f.list(ctx, "category:"+slug, func(ctx context.Context) (*model.ProductsResponse, error) {
		return f.next.FetchProductsByCategory(ctx, slug)
	})
}

// FetchProductByID implements Fetcher.
func (f *CachedFetcher) FetchProductByID(ctx context.Context, id int) (model.Product, error) {
	v, _, err := f.products.LoadWith(ctx, "product:"+strconv.Itoa(id), loader.NewFunctionLoaderWithTTL(f.ttls.Product,
		func(ctx context.Context, _ string) (model.Product, error) {
			return f.next.FetchProductByID(ctx, id)
		}))
	return v, err
}

// FetchCategories implements Fetcher.
func (f *CachedFetcher) FetchCategories(ctx context.Context) ([]model.Category, error) {
	v, _, err := f.categories.LoadWith(ctx, keyCategories, loader.NewFunctionLoaderWithTTL(f.ttls.Categories,
		func(ctx context.Context, _ string) ([]model.Category, error) {
			return f.next.FetchCategories(ctx)
		}))
	return v, err
}

// Invalidate drops every cached response.
//
// Invalidate 删除所有缓存的响应。
func (f *CachedFetcher) Invalidate(ctx context.Context) error {
	return f.cache.Clear(ctx)
}

// Stats returns the cache statistics.
func (f *CachedFetcher) Stats(ctx context.Context) (*cache.Stats, error) {
	return f.cache.Stats(ctx)
}

func (f *CachedFetcher) list(ctx context.Context, key string, fetch func(context.Context) (*model.ProductsResponse, error)) (*model.ProductsResponse, error) {
	v, _, err := f.lists.LoadWith(ctx, key, loader.NewFunctionLoaderWithTTL(f.ttls.Products,
		func(ctx context.Context, _ string) (*model.ProductsResponse, error) {
			return fetch(ctx)
		}))
	return v, err
}
