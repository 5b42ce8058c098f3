package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/configs"
	"github.com/yourusername/storefront/internal/kv"
	"github.com/yourusername/storefront/internal/metrics"
	"github.com/yourusername/storefront/pkg/cache"
	"github.com/yourusername/storefront/pkg/catalog"
	"github.com/yourusername/storefront/pkg/codec"
	"github.com/yourusername/storefront/pkg/favorites"
	"github.com/yourusername/storefront/pkg/loader"
)

// app 持有由配置构建的所有组件
type app struct {
	cfg     *configs.Config
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	client  *catalog.Client
	cached  *catalog.CachedFetcher
	catalog catalog.Fetcher

	favorites *favorites.Store

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *configs.Config, log logrus.FieldLogger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	level := metrics.Disabled
	if cfg.Metrics.Enable {
		level = metrics.ParseLevel(cfg.Metrics.Level)
	}
	a.metrics = metrics.New(&metrics.Config{Level: level, HistogramBuckets: cfg.Metrics.HistogramBuckets})

	ref, err := cfg.Catalog.ReferenceTime()
	if err != nil {
		return nil, err
	}
	a.client = catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithDater(catalog.Dater{Reference: ref, WindowMonths: cfg.Catalog.WindowMonths}),
		catalog.WithClientLogger(log),
		catalog.WithRecorder(a.metrics),
		catalog.WithValidation(cfg.Catalog.Validate),
	)
	a.catalog = a.client

	if cfg.Cache.Enable {
		c, err := cache.NewWithOptions("catalog",
			cache.WithMaxEntryCount(cfg.Cache.MaxEntries),
			cache.WithTTL(0),
			cache.WithCleanInterval(cfg.Cache.CleanInterval),
		)
		if err != nil {
			return nil, fmt.Errorf("create catalog cache: %w", err)
		}
		a.closers = append(a.closers, c)
		a.cached = catalog.NewCachedFetcher(a.client, c, catalog.TTLs{
			Products:   cfg.Cache.ProductsTTL,
			Product:    cfg.Cache.ProductTTL,
			Categories: cfg.Cache.CategoriesTTL,
		}, a.metrics, loader.WithTimeout(cfg.Catalog.Timeout))
		a.catalog = a.cached
	}

	store, err := a.openFavorites(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.favorites = store

	return a, nil
}

func (a *app) openFavorites(ctx context.Context) (*favorites.Store, error) {
	var backend favorites.KV
	switch a.cfg.Favorites.Backend {
	case "memory":
		mem, err := favorites.NewMemoryKV()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, mem)
		backend = mem
	case "sqlite":
		db, err := kv.OpenSQLite(ctx, a.cfg.Favorites.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		backend = db
	default:
		return nil, fmt.Errorf("unknown favorites backend %q", a.cfg.Favorites.Backend)
	}

	c, err := codec.GetCodec(a.cfg.Favorites.Codec)
	if err != nil {
		return nil, err
	}

	return favorites.NewStore(backend,
		favorites.WithKey(a.cfg.Favorites.Key),
		favorites.WithCodec(c),
		favorites.WithLogger(a.log),
		favorites.WithRecorder(a.metrics),
	), nil
}

// cacheStats 返回目录缓存的统计函数；未启用缓存时为nil
func (a *app) cacheStats() func(ctx context.Context) (*cache.Stats, error) {
	if a.cached == nil {
		return nil
	}
	return a.cached.Stats
}

// Close 按创建的逆序释放资源
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
