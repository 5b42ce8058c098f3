package browse

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/internal/debounce"
	sferrors "github.com/yourusername/storefront/pkg/errors"
	"github.com/yourusername/storefront/pkg/model"
)

// DefaultSearchDebounce is the quiet period applied to search input.
const DefaultSearchDebounce = 300 * time.Millisecond

// Navigator receives the encoded browsing state whenever it changes.
// Replace must overwrite the current location, not append a history entry.
//
// Navigator 在浏览状态变化时接收编码后的状态。
// Replace 必须替换当前位置，而不是追加历史记录。
type Navigator interface {
	Replace(query string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(query string)

// Replace calls f(query).
func (f NavigatorFunc) Replace(query string) { f(query) }

// SessionLoader fetches the catalog and its categories as one unit.
//
// SessionLoader 将目录及其类别作为一个整体获取。
type SessionLoader func(ctx context.Context) ([]model.Product, []model.Category, error)

// View is an immutable snapshot of the pipeline delivered to observers.
//
// View 是交付给观察者的管道不可变快照。
type View struct {
	Products      []model.Product
	Total         int
	Filtered      int
	Page          int
	TotalPages    int
	Pages         []int
	PendingSearch string
	Filter        FilterState
	Categories    []model.Category
	Query         string
	Err           error
	Loading       bool
	Loaded        bool
}

// HasPrev reports whether a previous page exists.
func (v View) HasPrev() bool { return v.Page > 1 }

// HasNext reports whether a next page exists.
func (v View) HasNext() bool { return v.Page < v.TotalPages }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the timer source used for search debouncing.
func WithClock(c debounce.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithDebounce sets the search quiet period.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithNavigator sets the URL sink.
func WithNavigator(n Navigator) Option {
	return func(p *Pipeline) { p.nav = n }
}

// WithLocation sets the location used to clamp date bounds to whole days.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

type listener struct {
	id uint64
	fn func(View)
}

// Pipeline is the stateful filter/pagination pipeline behind an interactive
// product listing. It owns the loaded catalog, the pending and debounced search
// text, the filter state and the current page, and derives the filtered view
// from them.
//
// All state transitions are serialised by one mutex. Observers and the
// navigator are invoked after the mutex is released, so they may call back
// into the Pipeline.
//
// Pipeline 是交互式商品列表背后的有状态过滤/分页管道。
type Pipeline struct {
	mu sync.Mutex

	log       logrus.FieldLogger
	loc       *time.Location
	clock     debounce.Clock
	delay     time.Duration
	debouncer *debounce.Debouncer
	nav       Navigator

	catalog    []model.Product
	categories []model.Category
	pending    string
	filter     FilterState
	page       int
	filtered   []model.Product
	err        error
	loading    bool
	loaded     bool
	closed     bool

	// 摄取后的第一次重算保留从URL恢复的页码
	restorePage bool
	loadGen     uint64
	recomputes  uint64
	lastQuery   string

	listeners []listener
	nextID    uint64
}

// New creates a Pipeline in its default state.
//
// New 创建处于默认状态的Pipeline。
func New(opts ...Option) *Pipeline {
	return NewFromState(DefaultState(), opts...)
}

// NewFromState creates a Pipeline seeded from s, typically restored from a URL.
// The page in s is kept across the first recompute after the catalog loads,
// clamped to the resulting page count.
//
// NewFromState 创建以s为初始状态的Pipeline，通常从URL恢复。
func NewFromState(s State, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:   logrus.StandardLogger(),
		loc:   time.UTC,
		clock: debounce.RealClock(),
		delay: DefaultSearchDebounce,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.debouncer = debounce.New(p.delay, debounce.WithClock(p.clock))

	p.filter = s.Filter.Normalize()
	p.pending = p.filter.Search
	p.page = s.Page
	if p.page < 1 {
		p.page = 1
	}
	p.restorePage = true
	p.lastQuery = p.stateLocked().Encode()
	return p
}

// NewFromValues creates a Pipeline seeded from URL query values. Invalid
// parameters fall back to their defaults and are logged.
//
// NewFromValues 从URL查询值创建Pipeline。无效参数回退为默认值并记录日志。
func NewFromValues(v url.Values, opts ...Option) *Pipeline {
	s, err := ParseState(v)
	p := NewFromState(s, opts...)
	if err != nil {
		p.log.WithError(err).Warn("ignoring invalid browse parameters")
	}
	return p
}

// Subscribe registers fn to receive a View after each state change and
// returns a function that removes it.
//
// Subscribe 注册fn以在每次状态变化后接收View，并返回移除它的函数。
func (p *Pipeline) Subscribe(fn func(View)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Load fetches the catalog through load and ingests it. While the fetch is in
// flight the pipeline reports Loading. On failure the error is exposed through
// Err and no products are shown. A completion that arrives after Close, or
// after a newer Load started, is discarded.
//
// Load 通过load获取目录并摄取。
//
// Parameters:
//   - ctx: Context for the fetch
//   - load: Fetches products and categories jointly
//
// Returns:
//   - error: The fetch error, or errors.ErrClosed if the pipeline was closed
func (p *Pipeline) Load(ctx context.Context, load SessionLoader) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return sferrors.ErrClosed
	}
	p.loadGen++
	gen := p.loadGen
	p.loading = true
	p.err = nil
	n := p.changedLocked()
	p.mu.Unlock()
	n.deliver()

	products, categories, err := load(ctx)

	p.mu.Lock()
	if p.closed || gen != p.loadGen {
		closed := p.closed
		p.mu.Unlock()
		p.log.Debug("discarding stale catalog load")
		if closed {
			return sferrors.ErrClosed
		}
		return err
	}
	if err != nil {
		n = p.failLocked(err)
		p.mu.Unlock()
		n.deliver()
		return err
	}
	n = p.ingestLocked(products, categories)
	p.mu.Unlock()
	n.deliver()
	return nil
}

// SetCatalog ingests an already-fetched catalog.
//
// SetCatalog 摄取已获取的目录。
func (p *Pipeline) SetCatalog(products []model.Product, categories []model.Category) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.loadGen++
	n := p.ingestLocked(products, categories)
	p.mu.Unlock()
	n.deliver()
}

// Fail puts the pipeline into the failed state.
func (p *Pipeline) Fail(err error) {
	p.mu.Lock()
	if p.closed || err == nil {
		p.mu.Unlock()
		return
	}
	p.loadGen++
	n := p.failLocked(err)
	p.mu.Unlock()
	n.deliver()
}

// Err returns the load error, if any.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// SetSearchQuery records the raw search input. The text is visible immediately
// through View.PendingSearch; it becomes the active filter only after the
// debounce period passes without another call.
//
// SetSearchQuery 记录原始搜索输入。文本立即通过View.PendingSearch可见；
// 只有在防抖期内没有新的调用后，它才成为有效的过滤条件。
func (p *Pipeline) SetSearchQuery(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = text
	p.debouncer.Trigger(func() { p.applySearch(text) })
	n := p.changedLocked()
	p.mu.Unlock()
	n.deliver()
}

// FlushSearch applies the pending search text immediately, cancelling the
// debounce timer.
func (p *Pipeline) FlushSearch() {
	p.debouncer.Cancel()

	p.mu.Lock()
	text := p.pending
	p.mu.Unlock()
	p.applySearch(text)
}

// SearchInput returns the pending (not yet debounced) search text.
func (p *Pipeline) SearchInput() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *Pipeline) applySearch(text string) {
	p.mu.Lock()
	if p.closed || p.filter.Search == text {
		p.mu.Unlock()
		return
	}
	p.filter.Search = text
	n := p.recomputeLocked(false)
	p.mu.Unlock()
	n.deliver()
}

// SetCategory constrains the listing to one category slug, or AllCategories.
//
// SetCategory 将列表限制为一个类别，或AllCategories。
func (p *Pipeline) SetCategory(slug string) {
	if slug == "" {
		slug = AllCategories
	}

	p.mu.Lock()
	if p.closed || p.filter.Category == slug {
		p.mu.Unlock()
		return
	}
	p.filter.Category = slug
	n := p.recomputeLocked(false)
	p.mu.Unlock()
	n.deliver()
}

// SetDateRange constrains the listing by dateAdded. A nil range, or one
// without From, clears the constraint.
//
// SetDateRange 按dateAdded限制列表。nil范围或没有From的范围会清除约束。
func (p *Pipeline) SetDateRange(r *DateRange) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	next := p.filter
	next.DateRange = nil
	if r != nil {
		cp := *r
		next.DateRange = &cp
	}
	next = next.Normalize()
	if p.filter.Equal(next) {
		p.mu.Unlock()
		return
	}
	p.filter = next
	n := p.recomputeLocked(false)
	p.mu.Unlock()
	n.deliver()
}

// ResetFilters restores the default filter and clears the pending search text.
func (p *Pipeline) ResetFilters() {
	p.debouncer.Cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = ""
	if p.filter.IsDefault() {
		n := p.changedLocked()
		p.mu.Unlock()
		n.deliver()
		return
	}
	p.filter = DefaultFilter()
	n := p.recomputeLocked(false)
	p.mu.Unlock()
	n.deliver()
}

// GoToPage moves to page n, clamped to the available pages.
// It never recomputes the filtered view.
//
// GoToPage 移动到第n页（限制在可用页范围内），不会重新计算过滤视图。
func (p *Pipeline) GoToPage(n int) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	page := ClampPage(n, TotalPages(len(p.filtered), PageSize))
	if page == p.page {
		p.mu.Unlock()
		return
	}
	p.page = page
	p.restorePage = false
	note := p.changedLocked()
	p.mu.Unlock()
	note.deliver()
}

// NextPage moves forward one page if possible.
func (p *Pipeline) NextPage() {
	p.GoToPage(p.Page() + 1)
}

// PrevPage moves back one page if possible.
func (p *Pipeline) PrevPage() {
	p.GoToPage(p.Page() - 1)
}

// Page returns the current page number.
func (p *Pipeline) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// State returns the navigable state currently mirrored into the URL.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Snapshot returns the current View.
//
// Snapshot 返回当前的View。
func (p *Pipeline) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Recomputes returns how many times the filtered view has been derived.
func (p *Pipeline) Recomputes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recomputes
}

// Close stops the debounce timer and detaches every observer. Subsequent
// timer firings and load completions are ignored.
//
// Close 停止防抖定时器并分离所有观察者。之后的定时器触发和加载完成都会被忽略。
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.debouncer.Stop()
	p.listeners = nil
}

func (p *Pipeline) ingestLocked(products []model.Product, categories []model.Category) notification {
	p.catalog = products
	p.categories = categories
	p.loading = false
	p.loaded = true
	p.err = nil
	p.log.WithFields(logrus.Fields{
		"products":   len(products),
		"categories": len(categories),
	}).Debug("catalog ingested")
	return p.recomputeLocked(true)
}

func (p *Pipeline) failLocked(err error) notification {
	p.err = err
	p.loading = false
	p.filtered = nil
	p.log.WithError(err).Warn("catalog load failed")
	return p.changedLocked()
}

// recomputeLocked derives the filtered view. Every recompute returns to page 1,
// except the first one after ingestion while a restored page is still pending.
func (p *Pipeline) recomputeLocked(ingest bool) notification {
	if p.err == nil {
		p.filtered = Filter(p.catalog, p.filter, p.loc)
	}
	total := TotalPages(len(p.filtered), PageSize)

	if ingest && p.restorePage {
		p.page = ClampPage(p.page, total)
	} else {
		p.page = 1
	}
	p.restorePage = false
	p.recomputes++

	p.log.WithFields(logrus.Fields{
		"search":   p.filter.Search,
		"category": p.filter.Category,
		"filtered": len(p.filtered),
		"page":     p.page,
	}).Debug("recomputed filtered view")
	return p.changedLocked()
}

func (p *Pipeline) stateLocked() State {
	return State{Filter: p.filter, Page: p.page}
}

func (p *Pipeline) viewLocked() View {
	page := Paginate(p.filtered, p.page, PageSize)
	products := make([]model.Product, len(page.Products))
	copy(products, page.Products)

	var categories []model.Category
	if p.categories != nil {
		categories = make([]model.Category, len(p.categories))
		copy(categories, p.categories)
	}

	return View{
		Products:      products,
		Total:         len(p.catalog),
		Filtered:      len(p.filtered),
		Page:          p.page,
		TotalPages:    page.TotalPages,
		Pages:         PageWindow(p.page, page.TotalPages),
		PendingSearch: p.pending,
		Filter:        p.filter,
		Categories:    categories,
		Query:         p.stateLocked().Encode(),
		Err:           p.err,
		Loading:       p.loading,
		Loaded:        p.loaded,
	}
}

// notification carries everything that must happen once the mutex is released.
type notification struct {
	nav       Navigator
	query     string
	replace   bool
	view      View
	listeners []func(View)
}

// changedLocked captures the observers to call and whether the URL changed.
func (p *Pipeline) changedLocked() notification {
	n := notification{view: p.viewLocked()}

	if n.view.Query != p.lastQuery {
		p.lastQuery = n.view.Query
		if p.nav != nil {
			n.nav = p.nav
			n.query = n.view.Query
			n.replace = true
		}
	}

	n.listeners = make([]func(View), len(p.listeners))
	for i, l := range p.listeners {
		n.listeners[i] = l.fn
	}
	return n
}

func (n notification) deliver() {
	if n.replace {
		n.nav.Replace(n.query)
	}
	for _, fn := range n.listeners {
		fn(n.view)
	}
}
