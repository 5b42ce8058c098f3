package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront/internal/metrics"
	"github.com/yourusername/storefront/pkg/cache"
	sferrors "github.com/yourusername/storefront/pkg/errors"
	"github.com/yourusername/storefront/pkg/model"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var sampleProducts = []model.Product{
	{ID: 1, Title: "iPhone 9", Description: "An apple mobile", Price: 549, Rating: 4.69, Stock: 94, Category: "smartphones"},
	{ID: 2, Title: "Essence Mascara", Description: "Popular mascara", Price: 9.99, Rating: 4.94, Stock: 5, Category: "beauty"},
	{ID: 3, Title: "Apple", Description: "Fresh apple", Price: 1.99, Rating: 4.2, Stock: 0, Category: "groceries"},
}

// fakeCatalog serves the remote catalog API and counts requests per path.
type fakeCatalog struct {
	t          *testing.T
	mu         sync.Mutex
	products   []model.Product
	categories string
	fail       map[string]int
	hits       map[string]*int32
}

func newFakeCatalog(t *testing.T) (*fakeCatalog, *httptest.Server) {
	f := &fakeCatalog{
		t:          t,
		products:   sampleProducts,
		categories: `[{"slug":"smartphones","name":"Smartphones","url":"x"},"beauty",{"slug":"groceries"},"beauty",""]`,
		fail:       map[string]int{},
		hits:       map[string]*int32{},
	}
	for _, p := range []string{"/products", "/products/search", "/products/categories", "/products/1", "/products/999", "/products/category/beauty"} {
		f.hits[p] = new(int32)
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeCatalog) setFail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, path)
		return
	}
	f.fail[path] = status
}

func (f *fakeCatalog) setProducts(products []model.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = products
}

func (f *fakeCatalog) count(path string) int32 {
	return atomic.LoadInt32(f.hits[path])
}

func (f *fakeCatalog) serve(w http.ResponseWriter, r *http.Request) {
	if n, ok := f.hits[r.URL.Path]; ok {
		atomic.AddInt32(n, 1)
	}
	f.mu.Lock()
	status, failing := f.fail[r.URL.Path]
	products := f.products
	f.mu.Unlock()
	if failing {
		http.Error(w, "unavailable", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	switch r.URL.Path {
	case "/products":
		assert.Equal(f.t, "0", r.URL.Query().Get("limit"))
		_ = enc.Encode(model.ProductsResponse{Products: products, Total: len(products)})
	case "/products/search":
		var out []model.Product
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Title), r.URL.Query().Get("q")) {
				out = append(out, p)
			}
		}
		_ = enc.Encode(model.ProductsResponse{Products: out, Total: len(out)})
	case "/products/categories":
		_, _ = io.WriteString(w, f.categories)
	case "/products/1":
		_ = enc.Encode(products[0])
	case "/products/category/beauty":
		_ = enc.Encode(model.ProductsResponse{Products: products[1:2], Total: 1})
	default:
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}
}

func TestDateAdded(t *testing.T) {
	start := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)

	// seed(100) = 0, seed(50) = 50
	assert.Equal(t, start, DateAdded(100, DefaultReference))
	assert.Equal(t, time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC), DateAdded(50, DefaultReference))

	for id := 1; id <= 250; id++ {
		d := DateAdded(id, DefaultReference)
		assert.False(t, d.Before(start), "id %d", id)
		assert.False(t, d.After(DefaultReference), "id %d", id)
		assert.Equal(t, d, DateAdded(id, DefaultReference))
		assert.Zero(t, d.Nanosecond()%int(time.Millisecond), "millisecond resolution")
	}
}

func TestDaterWindow(t *testing.T) {
	ref := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)
	d := Dater{Reference: ref, WindowMonths: 1}
	assert.Equal(t, time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), d.DateAdded(100))

	// zero value falls back to the defaults
	assert.Equal(t, DateAdded(7, DefaultReference), Dater{}.DateAdded(7))
}

func TestFetchAllProductsEnriches(t *testing.T) {
	_, srv := newFakeCatalog(t)
	c := NewClient(srv.URL+"/", WithClientLogger(quietLogger()))

	products, err := c.FetchAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	for _, p := range products {
		assert.Equal(t, DateAdded(p.ID, DefaultReference), p.DateAdded)
	}
	assert.Equal(t, "iPhone 9", products[0].Title)
}

func TestFetchProductByID(t *testing.T) {
	_, srv := newFakeCatalog(t)
	c := NewClient(srv.URL, WithClientLogger(quietLogger()))

	p, err := c.FetchProductByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.False(t, p.DateAdded.IsZero())

	_, err = c.FetchProductByID(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, sferrors.IsNotFound(err))
	assert.False(t, sferrors.IsFetchError(err))

	var pe *sferrors.ProductError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 999, pe.ID)
}

func TestNon2xxIsFetchError(t *testing.T) {
	f, srv := newFakeCatalog(t)
	f.setFail("/products", http.StatusInternalServerError)
	m := metrics.New(nil)
	c := NewClient(srv.URL, WithClientLogger(quietLogger()), WithRecorder(m))

	_, err := c.FetchAllProducts(context.Background())
	require.Error(t, err)
	fe, ok := sferrors.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, "fetch all products", fe.Op)
	assert.False(t, sferrors.IsNotFound(err))

	s := m.Snapshot()
	assert.Equal(t, uint64(1), s.Fetches)
	assert.Equal(t, uint64(1), s.FetchErrors)
}

func TestTransportFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, WithClientLogger(quietLogger()), WithTimeout(time.Second))

	_, err := c.FetchCategories(context.Background())
	fe, ok := sferrors.AsFetchError(err)
	require.True(t, ok)
	assert.Zero(t, fe.StatusCode)
	assert.NotNil(t, fe.Err)
}

func TestFetchCategoriesNormalises(t *testing.T) {
	_, srv := newFakeCatalog(t)
	c := NewClient(srv.URL, WithClientLogger(quietLogger()))

	cats, err := c.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Category{"smartphones", "beauty", "groceries"}, cats)
}

func TestDecodeCategories(t *testing.T) {
	got, err := decodeCategories([]byte(`["a","b","a"]`))
	require.NoError(t, err)
	assert.Equal(t, []model.Category{"a", "b"}, got)

	got, err = decodeCategories([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decodeCategories([]byte(`[42]`))
	assert.Error(t, err)

	_, err = decodeCategories([]byte(`{"slug":"a"}`))
	assert.Error(t, err)
}

func TestSearchAndCategoryListings(t *testing.T) {
	_, srv := newFakeCatalog(t)
	c := NewClient(srv.URL, WithClientLogger(quietLogger()))
	ctx := context.Background()

	resp, err := c.SearchProducts(ctx, "apple")
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, 3, resp.Products[0].ID)
	assert.False(t, resp.Products[0].DateAdded.IsZero())

	resp, err = c.FetchProductsByCategory(ctx, "beauty")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "beauty", resp.Products[0].Category)
}

func TestInvalidProductRecord(t *testing.T) {
	f, srv := newFakeCatalog(t)
	f.setProducts([]model.Product{{ID: 4, Title: "Broken", Rating: 7}})
	c := NewClient(srv.URL, WithClientLogger(quietLogger()))

	_, err := c.FetchAllProducts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sferrors.ErrInvalidProduct))
	assert.True(t, sferrors.IsFetchError(err))

	c = NewClient(srv.URL, WithClientLogger(quietLogger()), WithValidation(false))
	products, err := c.FetchAllProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func newCachedFetcher(t *testing.T, next Fetcher, m *metrics.Metrics) *CachedFetcher {
	t.Helper()
	c, err := cache.NewWithOptions("catalog-test", cache.WithTTL(time.Minute))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	if m == nil {
		return NewCachedFetcher(next, c, DefaultTTLs(), nil)
	}
	return NewCachedFetcher(next, c, DefaultTTLs(), m)
}

func TestCachedFetcherServesRepeatsFromCache(t *testing.T) {
	f, srv := newFakeCatalog(t)
	m := metrics.New(nil)
	cf := newCachedFetcher(t, NewClient(srv.URL, WithClientLogger(quietLogger())), m)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		products, err := cf.FetchAllProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 3)

		p, err := cf.FetchProductByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, p.ID)
	}
	assert.Equal(t, int32(1), f.count("/products"))
	assert.Equal(t, int32(1), f.count("/products/1"))

	s := m.Snapshot()
	assert.Equal(t, uint64(4), s.CacheHits)
	assert.Equal(t, uint64(2), s.CacheMisses)

	require.NoError(t, cf.Invalidate(ctx))
	_, err := cf.FetchAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.count("/products"))
}

func TestCachedFetcherDoesNotCacheErrors(t *testing.T) {
	f, srv := newFakeCatalog(t)
	cf := newCachedFetcher(t, NewClient(srv.URL, WithClientLogger(quietLogger())), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cf.FetchProductByID(ctx, 999)
		assert.True(t, sferrors.IsNotFound(err))
	}
	assert.Equal(t, int32(2), f.count("/products/999"))

	f.setFail("/products/categories", http.StatusBadGateway)
	_, err := cf.FetchCategories(ctx)
	require.Error(t, err)
	f.setFail("/products/categories", 0)

	cats, err := cf.FetchCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 3)
}

func TestLoadSession(t *testing.T) {
	_, srv := newFakeCatalog(t)
	c := NewClient(srv.URL, WithClientLogger(quietLogger()))

	s, err := LoadSession(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, s.Products, 3)
	assert.Equal(t, []model.Category{"smartphones", "beauty", "groceries"}, s.Categories)
	assert.False(t, s.LoadedAt.IsZero())

	products, categories, err := SessionLoader(c)(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.Len(t, categories, 3)
}

func TestLoadSessionFailsJointly(t *testing.T) {
	f, srv := newFakeCatalog(t)
	f.setFail("/products/categories", http.StatusServiceUnavailable)
	c := NewClient(srv.URL, WithClientLogger(quietLogger()))

	s, err := LoadSession(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, s)
	fe, ok := sferrors.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
}
