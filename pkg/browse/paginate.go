package browse

import "github.com/yourusername/storefront/pkg/model"

// PageSize is the fixed number of products shown per page.
//
// PageSize 是每页显示的固定商品数量。
const PageSize = 12

// MaxPageButtons is the number of page numbers shown by the page window.
const MaxPageButtons = 5

// Page is one window of a filtered view.
//
// Page 是过滤视图的一个窗口。
type Page struct {
	Number     int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Size       int             `json:"page_size"`
	Filtered   int             `json:"filtered"`
	Products   []model.Product `json:"products"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// TotalPages returns ceil(count/size), never less than 1.
//
// TotalPages 返回 ceil(count/size)，最小为1。
func TotalPages(count, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// ClampPage clamps n into [1, max(1, total)].
//
// ClampPage 将n限制在 [1, max(1, total)] 内。
func ClampPage(n, total int) int {
	if total < 1 {
		total = 1
	}
	if n < 1 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}

// Paginate returns page number (clamped) of items.
//
// Paginate 返回items的第page页（已限制范围）。
//
// Parameters:
//   - items: The filtered view
//   - page: The requested page, 1-based
//   - size: The page size, PageSize when <= 0
//
// Returns:
//   - Page: The page window
func Paginate(items []model.Product, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	total := TotalPages(len(items), size)
	page = ClampPage(page, total)

	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return Page{
		Number:     page,
		TotalPages: total,
		Size:       size,
		Filtered:   len(items),
		Products:   items[start:end:end],
	}
}

// PageWindow returns the page numbers to show in a pager with up to
// MaxPageButtons buttons. The window keeps current visible and stops sliding at
// both ends:
//
//	total <= 5          -> 1..total
//	current <= 3        -> 1..5
//	current >= total-2  -> total-4..total
//	otherwise           -> current-2..current+2
//
// PageWindow 返回最多MaxPageButtons个按钮的分页器中应显示的页码。
func PageWindow(current, total int) []int {
	if total < 1 {
		total = 1
	}

	n := MaxPageButtons
	if total < n {
		n = total
	}

	var first int
	switch {
	case total <= MaxPageButtons:
		first = 1
	case current <= 3:
		first = 1
	case current >= total-2:
		first = total - 4
	default:
		first = current - 2
	}

	pages := make([]int, n)
	for i := range pages {
		pages[i] = first + i
	}
	return pages
}
