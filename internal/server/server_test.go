package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront/configs"
	"github.com/yourusername/storefront/internal/logging"
	"github.com/yourusername/storefront/internal/metrics"
	"github.com/yourusername/storefront/pkg/cache"
	"github.com/yourusername/storefront/pkg/catalog"
	sferrors "github.com/yourusername/storefront/pkg/errors"
	"github.com/yourusername/storefront/pkg/favorites"
	"github.com/yourusername/storefront/pkg/model"
)

// fakeCatalog 是内存中的catalog.Fetcher
type fakeCatalog struct {
	mu       sync.Mutex
	products []model.Product
	calls    int
	fail     error
}

func newFakeCatalog(n int) *fakeCatalog {
	day0 := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeCatalog{}
	for i := 1; i <= n; i++ {
		cat := "beauty"
		if i%2 == 0 {
			cat = "groceries"
		}
		f.products = append(f.products, model.Product{
			ID:        i,
			Title:     fmt.Sprintf("Product %d", i),
			Category:  cat,
			Price:     float64(i),
			DateAdded: day0.AddDate(0, 0, i),
		})
	}
	return f
}

func (f *fakeCatalog) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

func (f *fakeCatalog) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeCatalog) FetchAllProducts(context.Context) ([]model.Product, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return append([]model.Product(nil), f.products...), nil
}

func (f *fakeCatalog) FetchProducts(_ context.Context, limit, skip int) (*model.ProductsResponse, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	end := skip + limit
	if end > len(f.products) {
		end = len(f.products)
	}
	return &model.ProductsResponse{Products: f.products[skip:end], Total: len(f.products), Skip: skip, Limit: limit}, nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, q string) (*model.ProductsResponse, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []model.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return &model.ProductsResponse{Products: out, Total: len(out), Limit: len(out)}, nil
}

func (f *fakeCatalog) FetchProductByID(_ context.Context, id int) (model.Product, error) {
	if err := f.err(); err != nil {
		return model.Product{}, err
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Product{}, sferrors.NewProductError(id, sferrors.ErrNotFound)
}

func (f *fakeCatalog) FetchCategories(context.Context) ([]model.Category, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return []model.Category{"beauty", "groceries", "home-decoration"}, nil
}

func (f *fakeCatalog) FetchProductsByCategory(_ context.Context, slug string) (*model.ProductsResponse, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []model.Product
	for _, p := range f.products {
		if p.Category == slug {
			out = append(out, p)
		}
	}
	return &model.ProductsResponse{Products: out, Total: len(out), Limit: len(out)}, nil
}

var _ catalog.Fetcher = (*fakeCatalog)(nil)

type fixture struct {
	catalog *fakeCatalog
	store   *favorites.Store
	metrics *metrics.Metrics
	handler *Handler
	router  http.Handler
	log     *logrus.Logger
	logs    *logrustest.Hook
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	log, hook := logrustest.NewNullLogger()

	mem, err := favorites.NewMemoryKV()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	m := metrics.New(nil)
	store := favorites.NewStore(mem, favorites.WithLogger(log), favorites.WithRecorder(m))
	fc := newFakeCatalog(n)

	svc := NewService(fc, store, WithMetrics(m), WithLogger(log))
	h := NewHandler(svc)
	t.Cleanup(h.Close)

	return &fixture{
		catalog: fc,
		store:   store,
		metrics: m,
		handler: h,
		log:     log,
		logs:    hook,
		router: NewRouter(h, RouterOptions{
			Mode:    "test",
			Metrics: m,
			Logger:  log,
		}),
	}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	f.router.ServeHTTP(w, req)
	return w
}

type listingBody struct {
	Products   []model.Product `json:"products"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	PageSize   int             `json:"page_size"`
	Filtered   int             `json:"filtered"`
	Total      int             `json:"total"`
	Pages      []int           `json:"pages"`
	Query      string          `json:"query"`
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	f := newFixture(t, 30)

	w := f.do(t, http.MethodGet, "/api/products?category=beauty&page=2")
	require.Equal(t, http.StatusOK, w.Code)

	var body listingBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 30, body.Total)
	assert.Equal(t, 15, body.Filtered)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 2, body.TotalPages)
	assert.Equal(t, 12, body.PageSize)
	assert.Equal(t, []int{1, 2}, body.Pages)
	assert.Equal(t, "category=beauty&page=2", body.Query)
	require.Len(t, body.Products, 3)
	for _, p := range body.Products {
		assert.Equal(t, "beauty", p.Category)
	}
	assert.Equal(t, 25, body.Products[0].ID)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().FilterPasses)
}

func TestListProductsClampsPageAndIgnoresBadParams(t *testing.T) {
	f := newFixture(t, 30)

	w := f.do(t, http.MethodGet, "/api/products?page=99&from=yesterday")
	require.Equal(t, http.StatusOK, w.Code)

	var body listingBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Page)
	assert.Equal(t, 3, body.TotalPages)
	assert.Len(t, body.Products, 6)
	assert.Equal(t, "page=3", body.Query)
}

func TestListProductsLogsIgnoredParams(t *testing.T) {
	f := newFixture(t, 30)
	f.log.SetLevel(logrus.DebugLevel)

	w := f.do(t, http.MethodGet, "/api/products?from=yesterday")
	require.Equal(t, http.StatusOK, w.Code)

	var found bool
	for _, e := range f.logs.AllEntries() {
		if e.Message == "ignoring invalid listing parameters" {
			found = true
			assert.Contains(t, e.Data[logrus.ErrorKey].(error).Error(), `from="yesterday"`)
		}
	}
	assert.True(t, found)
}

func TestListProductsEmptyResult(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodGet, "/api/products?search=nothing-matches")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"products":[]`)

	var body listingBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 1, body.TotalPages)
	assert.Equal(t, []int{1}, body.Pages)
}

func TestListProductsUpstreamFailure(t *testing.T) {
	f := newFixture(t, 5)
	f.catalog.setFail(sferrors.NewFetchError("products", "http://catalog/products", 503, nil))

	w := f.do(t, http.MethodGet, "/api/products")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().RequestErrors)
}

func TestUpstreamFailureLogsCatalogStatus(t *testing.T) {
	f := newFixture(t, 5)
	f.catalog.setFail(sferrors.NewFetchError("products", "http://catalog/products", 503, nil))

	w := f.do(t, http.MethodGet, "/api/products/2")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var entry *logrus.Entry
	for _, e := range f.logs.AllEntries() {
		if e.Message == "catalog request failed" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 503, entry.Data["upstream"])
	assert.Equal(t, "http://catalog/products", entry.Data["url"])
	assert.Equal(t, "products", entry.Data["op"])
}

func TestNotFoundDoesNotLogUpstreamFailure(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodGet, "/api/products/99")
	require.Equal(t, http.StatusNotFound, w.Code)
	for _, e := range f.logs.AllEntries() {
		assert.NotEqual(t, "catalog request failed", e.Message)
	}
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	w := f.do(t, http.MethodGet, "/api/products/3")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Product  model.Product `json:"product"`
		Favorite bool          `json:"favorite"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, 3, detail.Product.ID)
	assert.False(t, detail.Favorite)

	require.NoError(t, f.store.Add(ctx, 3))
	w = f.do(t, http.MethodGet, "/api/products/3")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.True(t, detail.Favorite)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/products/999").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/products/abc").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/products/0").Code)
}

func TestCategoriesAndSearch(t *testing.T) {
	f := newFixture(t, 12)

	w := f.do(t, http.MethodGet, "/api/categories")
	require.Equal(t, http.StatusOK, w.Code)
	var cats []CategoryInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	require.Len(t, cats, 3)
	assert.Equal(t, CategoryInfo{Slug: "home-decoration", Label: model.CategoryLabel("home-decoration")}, cats[2])

	w = f.do(t, http.MethodGet, "/api/categories/groceries/products")
	require.Equal(t, http.StatusOK, w.Code)
	var res model.ProductsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 6, res.Total)

	w = f.do(t, http.MethodGet, "/api/search?q=product+1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 4, res.Total) // 1, 10, 11, 12

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/search?q=+").Code)
}

func TestFavoritesEndpoints(t *testing.T) {
	f := newFixture(t, 5)

	var view FavoritesView
	w := f.do(t, http.MethodPost, "/api/favorites/3")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, FavoritesView{IDs: []int{3}, Count: 1}, view)

	w = f.do(t, http.MethodPost, "/api/favorites/4/toggle")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":4,"favorite":true}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/favorites/3/toggle")
	assert.JSONEq(t, `{"id":3,"favorite":false}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/favorites")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, FavoritesView{IDs: []int{4}, Count: 1}, view)

	w = f.do(t, http.MethodDelete, "/api/favorites/4")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, FavoritesView{IDs: []int{}, Count: 0}, view)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/favorites/x").Code)
	assert.Equal(t, uint64(4), f.metrics.Snapshot().FavoritesChanges)
}

func readEvent(t *testing.T, r *bufio.Reader) FavoritesEvent {
	t.Helper()
	var name string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			require.Equal(t, FavoritesEventName, name)
			var ev FavoritesEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev))
			return ev
		}
	}
}

func TestFavoriteEventsStream(t *testing.T) {
	f := newFixture(t, 5)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/favorites/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, FavoritesEvent{Count: 0}, readEvent(t, r))

	_, err = f.store.Toggle(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, FavoritesEvent{Count: 1}, readEvent(t, r))

	_, err = f.store.Toggle(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, FavoritesEvent{Count: 0}, readEvent(t, r))

	f.handler.Close()
	_, err = r.ReadString('\n')
	for err == nil {
		_, err = r.ReadString('\n')
	}
	assert.Zero(t, f.handler.events.clientCount())
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `storefront_http_requests_total{service="storefront"} 2`)
}

func TestCacheHeaders(t *testing.T) {
	log := logging.Discard()
	mem, err := favorites.NewMemoryKV()
	require.NoError(t, err)
	defer mem.Close()

	c, err := cache.NewWithOptions("catalog", cache.WithMaxEntryCount(100))
	require.NoError(t, err)
	defer c.Close()

	fc := newFakeCatalog(5)
	cached := catalog.NewCachedFetcher(fc, c, catalog.DefaultTTLs(), nil)
	h := NewHandler(NewService(cached, favorites.NewStore(mem, favorites.WithLogger(log)), WithLogger(log)))
	defer h.Close()
	router := NewRouter(h, RouterOptions{Mode: "test", CacheStats: cached.Stats, Logger: log})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
		require.Equal(t, http.StatusOK, w.Code)
		if i == 2 {
			assert.Equal(t, "1", w.Header().Get("X-Cache-Hits"))
			assert.Equal(t, "1", w.Header().Get("X-Cache-Misses"))
		}
	}
	assert.Equal(t, 1, fc.calls)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, 5)
	cfg := configs.DefaultConfig().Server
	cfg.Mode = "test"
	cfg.ShutdownTimeout = 2 * time.Second
	s := New(cfg, f.handler, RouterOptions{Logger: logging.Discard()})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
