// Package browse implements the client-side filter/pagination pipeline of the
// storefront: multi-predicate filtering of the in-memory catalog, pagination
// windowing, and the URL query encoding that mirrors the browsing state.
//
// The pure functions in this package are used directly by the HTTP API, where
// every request carries its full state in the URL. Pipeline wraps them with the
// stateful, debounced behaviour an interactive client needs.
//
// Package browse 实现商店前端的客户端过滤/分页管道：对内存目录进行多谓词过滤、
// 分页窗口计算，以及与浏览状态对应的URL查询编码。
package browse

import (
	"strings"
	"time"

	"github.com/yourusername/storefront/pkg/model"
)

// AllCategories is the category sentinel meaning "no category constraint".
//
// AllCategories 是表示"无类别约束"的类别哨兵值。
const AllCategories = "all"

// DateRange constrains products by their dateAdded.
// To is optional: a zero To means the range has no upper bound.
// From is normalized to start-of-day and To to end-of-day only during evaluation.
//
// DateRange 按dateAdded约束商品。
// To是可选的：零值To表示范围没有上界。
// From仅在求值时规范化为当天开始，To规范化为当天结束。
type DateRange struct {
	From time.Time
	To   time.Time
}

// HasTo reports whether the range has an upper bound.
func (r DateRange) HasTo() bool {
	return !r.To.IsZero()
}

// Equal reports whether two ranges denote the same instants.
//
// Equal 报告两个范围是否表示相同的时刻。
func (r DateRange) Equal(o DateRange) bool {
	return r.From.Equal(o.From) && r.To.Equal(o.To)
}

// Bounds returns the inclusive evaluation window in loc:
// [From at 00:00:00.000, To at 23:59:59.999]. When To is absent, end is zero.
//
// Bounds 返回loc中的闭区间求值窗口：
// [From 00:00:00.000, To 23:59:59.999]。当To不存在时，end为零值。
func (r DateRange) Bounds(loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	f := r.From.In(loc)
	start = time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	if r.HasTo() {
		t := r.To.In(loc)
		end = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	}
	return start, end
}

// Contains reports whether ts falls inside the range evaluated in loc.
//
// Contains 报告ts是否落在loc中求值的范围内。
func (r DateRange) Contains(ts time.Time, loc *time.Location) bool {
	start, end := r.Bounds(loc)
	if ts.Before(start) {
		return false
	}
	if !end.IsZero() && ts.After(end) {
		return false
	}
	return true
}

// FilterState holds the filter criteria.
//
// FilterState 保存过滤条件。
type FilterState struct {
	// Search is matched case-insensitively against title and description
	// Search 不区分大小写地匹配标题和描述
	Search string

	// Category is an exact slug, or AllCategories
	// Category 是精确的类别标识，或AllCategories
	Category string

	// DateRange is optional
	// DateRange 是可选的
	DateRange *DateRange
}

// DefaultFilter returns the filter that matches the whole catalog.
//
// DefaultFilter 返回匹配整个目录的过滤器。
func DefaultFilter() FilterState {
	return FilterState{Category: AllCategories}
}

// Normalize maps an empty category to AllCategories and drops a date range
// without a lower bound.
//
// Normalize 将空类别映射为AllCategories，并丢弃没有下界的日期范围。
func (f FilterState) Normalize() FilterState {
	if f.Category == "" {
		f.Category = AllCategories
	}
	if f.DateRange != nil && f.DateRange.From.IsZero() {
		f.DateRange = nil
	}
	return f
}

// Equal reports whether two filter states select the same products.
//
// Equal 报告两个过滤状态是否选择相同的商品。
func (f FilterState) Equal(o FilterState) bool {
	f, o = f.Normalize(), o.Normalize()
	if f.Search != o.Search || f.Category != o.Category {
		return false
	}
	if f.DateRange == nil || o.DateRange == nil {
		return f.DateRange == nil && o.DateRange == nil
	}
	return f.DateRange.Equal(*o.DateRange)
}

// IsDefault reports whether the filter matches the whole catalog.
func (f FilterState) IsDefault() bool {
	return f.Equal(DefaultFilter())
}

// Matches reports whether a single product satisfies every predicate.
//
// Matches 报告单个商品是否满足所有谓词。
func (f FilterState) Matches(p model.Product, loc *time.Location) bool {
	f = f.Normalize()

	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Category != AllCategories && p.Category != f.Category {
		return false
	}
	if f.DateRange != nil && !f.DateRange.Contains(p.DateAdded, loc) {
		return false
	}
	return true
}

// Filter returns the products of catalog matching f, in catalog order.
// The input slice is never modified; the result is a new slice.
//
// Filter 按目录顺序返回匹配f的商品。
// 输入切片永远不会被修改；结果是一个新切片。
//
// Parameters:
//   - catalog: The full catalog
//   - f: The filter criteria (AND-combined)
//   - loc: Location used for start/end-of-day clamping, nil means UTC
//
// Returns:
//   - []model.Product: The filtered view
func Filter(catalog []model.Product, f FilterState, loc *time.Location) []model.Product {
	out := make([]model.Product, 0, len(catalog))
	for _, p := range catalog {
		if f.Matches(p, loc) {
			out = append(out, p)
		}
	}
	return out
}
