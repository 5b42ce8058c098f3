package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	sferrors "github.com/yourusername/storefront/pkg/errors"
	"github.com/yourusername/storefront/pkg/model"
)

// Recorder receives the outcome of every remote call.
type Recorder interface {
	RecordFetch(err error)
}

// Client is a Fetcher backed by the remote catalog HTTP API.
//
// Client 是由远程目录HTTP API支持的Fetcher。
type Client struct {
	baseURL  string
	http     *http.Client
	dater    Dater
	log      logrus.FieldLogger
	recorder Recorder
	validate bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithDater sets how dateAdded is derived.
func WithDater(d Dater) ClientOption {
	return func(c *Client) { c.dater = d }
}

// WithClientLogger sets the logger.
func WithClientLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRecorder sets the sink for call outcomes.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// WithValidation enables or disables product record validation.
func WithValidation(enabled bool) ClientOption {
	return func(c *Client) { c.validate = enabled }
}

// NewClient creates a Client for baseURL. An empty baseURL means DefaultBaseURL.
//
// NewClient 为baseURL创建Client。空baseURL表示DefaultBaseURL。
//
// Parameters:
//   - baseURL: The catalog service root, without trailing slash
//   - opts: Optional settings
//
// Returns:
//   - *Client: A new catalog client
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		dater:    DefaultDater(),
		log:      logrus.StandardLogger(),
		validate: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the catalog service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchAllProducts 获取全部商品（limit=0）
func (c *Client) FetchAllProducts(ctx context.Context) ([]model.Product, error) {
	var resp model.ProductsResponse
	if _, err := c.get(ctx, "fetch all products", "/products", url.Values{"limit": {"0"}}, &resp); err != nil {
		return nil, err
	}
	products, err := c.ingest("fetch all products", resp.Products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FetchProducts 获取一个远程分页
func (c *Client) FetchProducts(ctx context.Context, limit, skip int) (*model.ProductsResponse, error) {
	q := url.Values{
		"limit": {strconv.Itoa(limit)},
		"skip":  {strconv.Itoa(skip)},
	}
	return c.getList(ctx, "fetch products", "/products", q)
}

// SearchProducts 执行远程搜索
func (c *Client) SearchProducts(ctx context.Context, query string) (*model.ProductsResponse, error) {
	return c.getList(ctx, "search products", "/products/search", url.Values{"q": {query}})
}

// FetchProductsByCategory 获取某个类别下的商品
func (c *Client) FetchProductsByCategory(ctx context.Context, slug string) (*model.ProductsResponse, error) {
	return c.getList(ctx, "fetch products by category", "/products/category/"+url.PathEscape(slug), nil)
}

// FetchProductByID returns one product. A 404 yields a *errors.ProductError
// wrapping errors.ErrNotFound.
//
// FetchProductByID 返回一个商品。404返回包装errors.ErrNotFound的*errors.ProductError。
func (c *Client) FetchProductByID(ctx context.Context, id int) (model.Product, error) {
	var p model.Product
	status, err := c.get(ctx, "fetch product", "/products/"+strconv.Itoa(id), nil, &p)
	if err != nil {
		if status == http.StatusNotFound {
			return model.Product{}, sferrors.NewProductError(id, sferrors.ErrNotFound)
		}
		return model.Product{}, err
	}

	products, err := c.ingest("fetch product", []model.Product{p})
	if err != nil {
		return model.Product{}, err
	}
	return products[0], nil
}

// FetchCategories 获取类别列表，兼容字符串和对象两种形式
func (c *Client) FetchCategories(ctx context.Context) ([]model.Category, error) {
	var raw json.RawMessage
	if _, err := c.get(ctx, "fetch categories", "/products/categories", nil, &raw); err != nil {
		return nil, err
	}
	categories, err := decodeCategories(raw)
	if err != nil {
		return nil, sferrors.NewFetchError("fetch categories", c.baseURL+"/products/categories", 0, err)
	}
	return categories, nil
}

func (c *Client) getList(ctx context.Context, op, path string, q url.Values) (*model.ProductsResponse, error) {
	var resp model.ProductsResponse
	if _, err := c.get(ctx, op, path, q, &resp); err != nil {
		return nil, err
	}
	products, err := c.ingest(op, resp.Products)
	if err != nil {
		return nil, err
	}
	resp.Products = products
	return &resp, nil
}

// ingest validates the records and assigns dateAdded.
func (c *Client) ingest(op string, products []model.Product) ([]model.Product, error) {
	if c.validate {
		for _, p := range products {
			if err := p.Validate(); err != nil {
				return nil, sferrors.NewFetchError(op, c.baseURL, 0,
					fmt.Errorf("%w: id %d: %v", sferrors.ErrInvalidProduct, p.ID, err))
			}
		}
	}
	return c.dater.Enrich(products), nil
}

// get performs a GET and decodes a 2xx JSON body into out. It returns the HTTP
// status (0 for transport failures) alongside any error.
func (c *Client) get(ctx context.Context, op, path string, q url.Values, out interface{}) (status int, err error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	start := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.RecordFetch(err)
		}
		entry := c.log.WithFields(logrus.Fields{
			"op":      op,
			"url":     u,
			"status":  status,
			"elapsed": time.Since(start),
		})
		if err != nil {
			entry.WithError(err).Warn("catalog request failed")
		} else {
			entry.Debug("catalog request")
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, sferrors.NewFetchError(op, u, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, sferrors.NewFetchError(op, u, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 读取并丢弃响应体，以便复用连接
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, sferrors.NewFetchError(op, u, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, sferrors.NewFetchError(op, u, 0, fmt.Errorf("decode response: %w", err))
	}
	return resp.StatusCode, nil
}
