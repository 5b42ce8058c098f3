// Package server 提供商店前端的HTTP接口：商品浏览、商品详情、类别和收藏。
// 处理程序只负责HTTP编解码，业务逻辑在Service中完成。
package server

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/internal/metrics"
	"github.com/yourusername/storefront/pkg/browse"
	"github.com/yourusername/storefront/pkg/catalog"
	"github.com/yourusername/storefront/pkg/favorites"
	"github.com/yourusername/storefront/pkg/model"
)

// Listing 是一页过滤后的商品以及渲染分页器所需的信息
type Listing struct {
	browse.Page

	// Total 是过滤前的目录大小
	Total int `json:"total"`
	// Pages 是分页器显示的页码窗口
	Pages []int `json:"pages"`
	// Query 是与本页对应的规范化查询串
	Query string `json:"query"`
}

// ProductDetail 是带收藏标记的单个商品
type ProductDetail struct {
	Product  model.Product `json:"product"`
	Favorite bool          `json:"favorite"`
}

// CategoryInfo 是类别标识及其展示名
type CategoryInfo struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// FavoritesView 是收藏集合的当前内容
type FavoritesView struct {
	IDs   []int `json:"ids"`
	Count int   `json:"count"`
}

// ServiceOption 配置Service
type ServiceOption func(*Service)

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLocation 设置日期范围过滤使用的时区
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service 组合商品目录与收藏存储
type Service struct {
	catalog   catalog.Fetcher
	favorites *favorites.Store
	metrics   *metrics.Metrics
	loc       *time.Location
	log       logrus.FieldLogger
}

// NewService 创建Service。fetcher通常是带缓存的CachedFetcher。
func NewService(fetcher catalog.Fetcher, store *favorites.Store, opts ...ServiceOption) *Service {
	s := &Service{
		catalog:   fetcher,
		favorites: store,
		loc:       time.UTC,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Browse 对完整目录执行过滤和分页。超出范围的页码会被限制到有效范围。
func (s *Service) Browse(ctx context.Context, st browse.State) (*Listing, error) {
	products, err := s.catalog.FetchAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	f := st.Filter.Normalize()
	filtered := browse.Filter(products, f, s.loc)
	page := browse.Paginate(filtered, st.Page, browse.PageSize)
	if page.Products == nil {
		page.Products = []model.Product{}
	}

	if s.metrics != nil {
		s.metrics.SetCatalogSize(len(products))
		s.metrics.RecordFilterPass()
	}

	return &Listing{
		Page:  page,
		Total: len(products),
		Pages: browse.PageWindow(page.Number, page.TotalPages),
		Query: browse.State{Filter: f, Page: page.Number}.Encode(),
	}, nil
}

// Product 返回单个商品及其收藏状态
func (s *Service) Product(ctx context.Context, id int) (*ProductDetail, error) {
	p, err := s.catalog.FetchProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fav, err := s.favorites.IsFavorite(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: p, Favorite: fav}, nil
}

// Search 执行远程全文搜索
func (s *Service) Search(ctx context.Context, query string) (*model.ProductsResponse, error) {
	return s.catalog.SearchProducts(ctx, query)
}

// Categories 返回所有类别
func (s *Service) Categories(ctx context.Context) ([]CategoryInfo, error) {
	slugs, err := s.catalog.FetchCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryInfo, len(slugs))
	for i, slug := range slugs {
		out[i] = CategoryInfo{Slug: slug, Label: model.CategoryLabel(slug)}
	}
	return out, nil
}

// CategoryProducts 返回一个类别中的商品
func (s *Service) CategoryProducts(ctx context.Context, slug string) (*model.ProductsResponse, error) {
	return s.catalog.FetchProductsByCategory(ctx, slug)
}

// Favorites 返回收藏集合
func (s *Service) Favorites(ctx context.Context) (*FavoritesView, error) {
	ids, err := s.favorites.List(ctx)
	if err != nil {
		return nil, err
	}
	return &FavoritesView{IDs: ids, Count: len(ids)}, nil
}

// AddFavorite 添加收藏
func (s *Service) AddFavorite(ctx context.Context, id int) (*FavoritesView, error) {
	if err := s.favorites.Add(ctx, id); err != nil {
		return nil, err
	}
	return s.Favorites(ctx)
}

// RemoveFavorite 移除收藏
func (s *Service) RemoveFavorite(ctx context.Context, id int) (*FavoritesView, error) {
	if err := s.favorites.Remove(ctx, id); err != nil {
		return nil, err
	}
	return s.Favorites(ctx)
}

// ToggleFavorite 切换收藏状态，返回切换后是否为收藏
func (s *Service) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	return s.favorites.Toggle(ctx, id)
}
