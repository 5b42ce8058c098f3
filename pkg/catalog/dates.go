package catalog

import (
	"time"

	"github.com/yourusername/storefront/pkg/model"
)

// DefaultReference is the fixed "today" that dateAdded values are spread behind.
var DefaultReference = time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)

// DefaultWindowMonths is how far back from the reference dateAdded can fall.
const DefaultWindowMonths = 6

// dateSeedMultiplier spreads consecutive ids across the window.
const dateSeedMultiplier = 123456789

// DateAdded derives a stable dateAdded for a product id, inside
// [reference - 6 months, reference].
//
// DateAdded 为商品ID派生稳定的dateAdded，位于 [reference - 6个月, reference] 内。
func DateAdded(id int, reference time.Time) time.Time {
	return Dater{Reference: reference, WindowMonths: DefaultWindowMonths}.DateAdded(id)
}

// Dater assigns synthetic dateAdded values. The remote catalog carries no
// creation date, so one is derived deterministically from the product id.
//
// Dater 分配合成的dateAdded值。远程目录不包含创建日期，因此由商品ID确定性地派生。
type Dater struct {
	Reference    time.Time
	WindowMonths int
}

// DefaultDater returns a Dater using DefaultReference and DefaultWindowMonths.
func DefaultDater() Dater {
	return Dater{Reference: DefaultReference, WindowMonths: DefaultWindowMonths}
}

// DateAdded returns start + floor(seed/100 * window) at millisecond
// resolution, where seed = id*123456789 mod 100.
//
// DateAdded 返回 start + floor(seed/100 * window)（毫秒精度），
// 其中 seed = id*123456789 mod 100。
func (d Dater) DateAdded(id int) time.Time {
	ref := d.Reference
	if ref.IsZero() {
		ref = DefaultReference
	}
	months := d.WindowMonths
	if months <= 0 {
		months = DefaultWindowMonths
	}

	end := ref.UTC()
	start := end.AddDate(0, -months, 0)
	rangeMs := end.Sub(start).Milliseconds()

	seed := (int64(id) * dateSeedMultiplier) % 100
	if seed < 0 {
		seed += 100
	}
	offset := int64(float64(seed) / 100 * float64(rangeMs))
	return start.Add(time.Duration(offset) * time.Millisecond)
}

// Enrich sets DateAdded on every product in place and returns the slice.
//
// Enrich 就地为每个商品设置DateAdded并返回该切片。
func (d Dater) Enrich(products []model.Product) []model.Product {
	for i := range products {
		products[i].DateAdded = d.DateAdded(products[i].ID)
	}
	return products
}
