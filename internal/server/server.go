package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/configs"
	"github.com/yourusername/storefront/internal/metrics"
	"github.com/yourusername/storefront/pkg/cache"
)

// RouterOptions 配置路由中的可选部分
type RouterOptions struct {
	// Mode 是gin运行模式，空值表示release
	Mode string
	// Metrics 为nil时不统计请求也不暴露指标端点
	Metrics *metrics.Metrics
	// MetricsPath 是Prometheus端点路径，默认 /metrics
	MetricsPath string
	// CacheStats 为nil时不输出 X-Cache-* 响应头
	CacheStats func(ctx context.Context) (*cache.Stats, error)
	Logger     logrus.FieldLogger
}

// NewRouter 注册所有路由
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	mode := opts.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	log := opts.Logger
	if log == nil {
		log = h.log
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))
	if opts.Metrics != nil {
		r.Use(RequestMetrics(opts.Metrics))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.NewPrometheusExporter(opts.Metrics, "storefront")))
	}

	api := r.Group("/api")
	if opts.CacheStats != nil {
		api.Use(CacheMetrics(opts.CacheStats))
	}

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/search", h.SearchProducts)
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:slug/products", h.CategoryProducts)

	api.GET("/favorites", h.ListFavorites)
	api.GET("/favorites/events", h.FavoriteEvents)
	api.POST("/favorites/:id", h.AddFavorite)
	api.DELETE("/favorites/:id", h.RemoveFavorite)
	api.POST("/favorites/:id/toggle", h.ToggleFavorite)

	return r
}

// Server 是带优雅关闭的HTTP服务
type Server struct {
	cfg     configs.ServerConfig
	handler *Handler
	http    *http.Server
	log     logrus.FieldLogger
}

// New 创建Server
func New(cfg configs.ServerConfig, h *Handler, opts RouterOptions) *Server {
	if opts.Mode == "" {
		opts.Mode = cfg.Mode
	}
	router := NewRouter(h, opts)
	return &Server{
		cfg:     cfg,
		handler: h,
		log:     h.log,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run 监听cfg.Addr直到ctx被取消，然后在ShutdownTimeout内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve 在ln上提供服务直到ctx被取消
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("starting server")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.handler.Close()
		return err
	case <-ctx.Done():
	}

	// 先断开事件流，否则Shutdown会一直等待长连接
	s.handler.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
