package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront/configs"
	"github.com/yourusername/storefront/pkg/model"
)

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	products := []model.Product{
		{ID: 1, Title: "Phone", Description: "A phone", Price: 499, Rating: 4.5, Stock: 3, Category: "smartphones"},
		{ID: 2, Title: "Mascara", Description: "Lashes", Price: 9.99, Rating: 4.9, Stock: 10, Category: "beauty"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.ProductsResponse{Products: products, Total: len(products)})
	})
	mux.HandleFunc("/products/categories", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["smartphones","beauty"]`))
	})
	mux.HandleFunc("/products/1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(products[0])
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setEnv 将应用指向测试目录和假目录服务
func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("STOREFRONT_CATALOG_BASE_URL", baseURL)
	t.Setenv("STOREFRONT_FAVORITES_PATH", filepath.Join(t.TempDir(), "favorites.db"))
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{}
	defer c.teardown()
	root := newRootCmd(c)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFavoritesCommandsPersist(t *testing.T) {
	setEnv(t, "http://127.0.0.1:1")

	out, err := execute(t, "favorites", "toggle", "5")
	require.NoError(t, err)
	assert.Equal(t, "added 5 (1 favorites)\n", out)

	out, err = execute(t, "fav", "add", "7")
	require.NoError(t, err)
	assert.Equal(t, "added 7 (2 favorites)\n", out)

	out, err = execute(t, "favorites", "toggle", "5")
	require.NoError(t, err)
	assert.Equal(t, "removed 5 (1 favorites)\n", out)

	out, err = execute(t, "favorites", "list")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	_, err = execute(t, "favorites", "remove", "x")
	assert.Error(t, err)
}

func TestProductCommand(t *testing.T) {
	srv := catalogServer(t)
	setEnv(t, srv.URL)

	_, err := execute(t, "favorites", "add", "1")
	require.NoError(t, err)

	out, err := execute(t, "product", "1")
	require.NoError(t, err)

	var got struct {
		Product  map[string]interface{} `json:"product"`
		Favorite bool                   `json:"favorite"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Phone", got.Product["title"])
	assert.NotEmpty(t, got.Product["dateAdded"])
	assert.True(t, got.Favorite)

	_, err = execute(t, "product", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = execute(t, "product", "0")
	assert.Error(t, err)
}

func TestBrowsePlain(t *testing.T) {
	srv := catalogServer(t)
	setEnv(t, srv.URL)

	out, err := execute(t, "browse", "--plain", "--query", "category=beauty")
	require.NoError(t, err)
	assert.Contains(t, out, "Mascara")
	assert.NotContains(t, out, "Phone")
	assert.Contains(t, out, "1 of 2 products")
	assert.Contains(t, out, "?category=beauty")

	_, err = execute(t, "browse", "--plain", "--query", "%zz")
	assert.Error(t, err)
}

func TestConfigInitWritesEffectiveConfig(t *testing.T) {
	setEnv(t, "http://127.0.0.1:1")
	t.Setenv("STOREFRONT_SERVER_ADDR", ":7071")
	t.Setenv("STOREFRONT_FAVORITES_CODEC", "json-pretty")
	path := filepath.Join(t.TempDir(), "storefront.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	cfg, err := configs.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":7071", cfg.Server.Addr)
	assert.Equal(t, "json-pretty", cfg.Favorites.Codec)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "--force", path)
	assert.NoError(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("STOREFRONT_LOG_LEVEL", "loud")
	_, err := execute(t, "favorites", "list")
	assert.Error(t, err)
}
