// Package model defines the catalog data model shared by the fetcher,
// the browse pipeline and the presentation layers.
//
// Package model 定义了由获取器、浏览管道和表示层共享的目录数据模型。
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ISOLayout is the timestamp layout used for dateAdded and URL date parameters.
// It matches JavaScript's Date.prototype.toISOString output.
//
// ISOLayout 是dateAdded和URL日期参数使用的时间戳格式。
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Product represents a catalog product.
// Products are immutable once fetched; DateAdded is derived at ingestion time.
//
// Product 表示目录中的商品。
// 商品获取后不可变；DateAdded在摄取时派生。
type Product struct {
	ID                 int       `json:"id" validate:"gt=0"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Price              float64   `json:"price" validate:"gte=0"`
	DiscountPercentage float64   `json:"discountPercentage" validate:"gte=0,lte=100"`
	Rating             float64   `json:"rating" validate:"gte=0,lte=5"`
	Stock              int       `json:"stock" validate:"gte=0"`
	Brand              string    `json:"brand"`
	Category           string    `json:"category"`
	Thumbnail          string    `json:"thumbnail"`
	Images             []string  `json:"images"`
	DateAdded          time.Time `json:"-"`
}

// productJSON mirrors Product with dateAdded rendered as an ISO string.
type productJSON struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
	DateAdded          string   `json:"dateAdded,omitempty"`
}

// MarshalJSON renders the product with dateAdded as an ISO-8601 UTC timestamp.
//
// MarshalJSON 将dateAdded渲染为ISO-8601 UTC时间戳。
func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Rating:             p.Rating,
		Stock:              p.Stock,
		Brand:              p.Brand,
		Category:           p.Category,
		Thumbnail:          p.Thumbnail,
		Images:             p.Images,
	}
	if !p.DateAdded.IsZero() {
		out.DateAdded = p.DateAdded.UTC().Format(ISOLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both remote API records (no dateAdded) and
// records previously rendered by MarshalJSON.
//
// UnmarshalJSON 同时接受远程API记录（无dateAdded）和由MarshalJSON渲染的记录。
func (p *Product) UnmarshalJSON(data []byte) error {
	var in productJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Product{
		ID:                 in.ID,
		Title:              in.Title,
		Description:        in.Description,
		Price:              in.Price,
		DiscountPercentage: in.DiscountPercentage,
		Rating:             in.Rating,
		Stock:              in.Stock,
		Brand:              in.Brand,
		Category:           in.Category,
		Thumbnail:          in.Thumbnail,
		Images:             in.Images,
	}
	if in.DateAdded != "" {
		t, err := time.Parse(time.RFC3339Nano, in.DateAdded)
		if err != nil {
			return fmt.Errorf("invalid dateAdded %q: %w", in.DateAdded, err)
		}
		p.DateAdded = t
	}
	return nil
}

// PrimaryImage returns the image at index i, falling back to the thumbnail
// when the product has no such image.
//
// PrimaryImage 返回索引i处的图片，若不存在则回退到缩略图。
func (p Product) PrimaryImage(i int) string {
	if i >= 0 && i < len(p.Images) && p.Images[i] != "" {
		return p.Images[i]
	}
	return p.Thumbnail
}

// InStock reports whether the product has available stock.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductsResponse is the paged envelope returned by the remote catalog.
//
// ProductsResponse 是远程目录返回的分页信封。
type ProductsResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// Category is a slug identifying a product grouping.
type Category = string

// CategoryLabel converts a slug like "home-decoration" into "Home decoration"
// for display.
//
// CategoryLabel 将类似"home-decoration"的标识转换为用于显示的"Home decoration"。
func CategoryLabel(slug string) string {
	if slug == "" {
		return ""
	}
	label := strings.ReplaceAll(slug, "-", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func productValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the product against the catalog contract
// (positive id, non-negative price and stock, bounded discount and rating).
//
// Validate 根据目录约定检查商品
// （正数ID、非负价格和库存、有界折扣和评分）。
//
// Returns:
//   - error: A validator.ValidationErrors describing the violations, or nil
func (p Product) Validate() error {
	return productValidator().Struct(p)
}
