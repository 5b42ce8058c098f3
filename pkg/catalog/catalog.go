// Package catalog retrieves products and categories from the remote catalog
// service, derives each product's dateAdded, and offers a cache-aside wrapper
// plus a joint session loader used to seed the browse pipeline.
//
// Package catalog 从远程目录服务获取商品和类别，派生每个商品的dateAdded，
// 并提供旁路缓存包装器以及用于初始化浏览管道的联合会话加载器。
package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/storefront/pkg/browse"
	"github.com/yourusername/storefront/pkg/model"
)

// DefaultBaseURL is the public catalog service.
const DefaultBaseURL = "https://dummyjson.com"

// Fetcher defines the read operations of the remote catalog.
// All methods are safe for concurrent use.
//
// Fetcher 定义远程目录的读取操作。所有方法都可以并发调用。
type Fetcher interface {
	// FetchAllProducts returns the whole catalog, enriched with dateAdded.
	// FetchAllProducts 返回整个目录，并附加dateAdded。
	FetchAllProducts(ctx context.Context) ([]model.Product, error)

	// FetchProducts returns one remote page of the catalog.
	// FetchProducts 返回目录的一个远程分页。
	FetchProducts(ctx context.Context, limit, skip int) (*model.ProductsResponse, error)

	// SearchProducts runs the remote full-text search.
	// SearchProducts 执行远程全文搜索。
	SearchProducts(ctx context.Context, query string) (*model.ProductsResponse, error)

	// FetchProductByID returns a single product. A missing product yields an
	// error matching errors.ErrNotFound.
	// FetchProductByID 返回单个商品。商品不存在时返回匹配errors.ErrNotFound的错误。
	FetchProductByID(ctx context.Context, id int) (model.Product, error)

	// FetchCategories returns the category slugs, deduplicated in source order.
	// FetchCategories 返回按源顺序去重的类别标识。
	FetchCategories(ctx context.Context) ([]model.Category, error)

	// FetchProductsByCategory returns the products of one category.
	// FetchProductsByCategory 返回一个类别中的商品。
	FetchProductsByCategory(ctx context.Context, slug string) (*model.ProductsResponse, error)
}

// Session is the data an interactive listing needs up front.
//
// Session 是交互式列表预先需要的数据。
type Session struct {
	Products   []model.Product
	Categories []model.Category
	LoadedAt   time.Time
}

// LoadSession fetches the catalog and the categories concurrently. The load is
// all-or-nothing: if either call fails the other is cancelled and the first
// error is returned.
//
// LoadSession 并发获取目录和类别。加载是全有或全无的：
// 任一调用失败时另一个会被取消，并返回第一个错误。
//
// Parameters:
//   - ctx: Context for both fetches
//   - f: The catalog to read from
//
// Returns:
//   - *Session: The loaded session
//   - error: The first fetch error
func LoadSession(ctx context.Context, f Fetcher) (*Session, error) {
	var s Session

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := f.FetchAllProducts(gctx)
		if err != nil {
			return err
		}
		s.Products = products
		return nil
	})
	g.Go(func() error {
		categories, err := f.FetchCategories(gctx)
		if err != nil {
			return err
		}
		s.Categories = categories
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.LoadedAt = time.Now()
	return &s, nil
}

// SessionLoader adapts f to the loader expected by browse.Pipeline.Load.
//
// SessionLoader 将f适配为browse.Pipeline.Load所需的加载器。
func SessionLoader(f Fetcher) browse.SessionLoader {
	return func(ctx context.Context) ([]model.Product, []model.Category, error) {
		s, err := LoadSession(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		return s.Products, s.Categories, nil
	}
}

var (
	_ Fetcher = (*Client)(nil)
	_ Fetcher = (*CachedFetcher)(nil)
)
