// Package tui 是浏览管道的终端界面。界面只把按键翻译为管道操作，
// 并渲染管道推送的View；过滤、分页和URL状态都由browse.Pipeline维护。
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/pkg/browse"
	sferrors "github.com/yourusername/storefront/pkg/errors"
	"github.com/yourusername/storefront/pkg/favorites"
	"github.com/yourusername/storefront/pkg/model"
)

// DatePreset is a relative dateAdded window selectable with the "d" key.
type DatePreset struct {
	Label string
	Days  int
}

// DatePresets 按"d"键循环的日期范围；第一个表示不限
var DatePresets = []DatePreset{
	{Label: "any time"},
	{Label: "last 30 days", Days: 30},
	{Label: "last 90 days", Days: 90},
	{Label: "last 180 days", Days: 180},
}

type viewMsg browse.View

type loadedMsg struct{ err error }

type favoritesMsg struct {
	ids []int
	err error
}

// favoritesChangedMsg 由收藏订阅产生；处理后重新等待下一次变更
type favoritesChangedMsg favoritesMsg

// Options 配置Model
type Options struct {
	// Loader 获取目录；为nil时假定调用方已经调用过SetCatalog
	Loader browse.SessionLoader
	// Favorites 为nil时禁用收藏
	Favorites *favorites.Store
	// Anchor 是日期预设的结束日，通常是目录的参考日期
	Anchor time.Time
	Logger logrus.FieldLogger
}

// Model 是bubbletea模型
type Model struct {
	ctx      context.Context
	pipeline *browse.Pipeline
	opts     Options
	log      logrus.FieldLogger

	updates     chan browse.View
	unsubscribe func()

	favsChanged chan struct{}
	unsubFavs   func()

	input    textinput.Model
	focused  bool
	view     browse.View
	cursor   int
	preset   int
	favs     map[int]bool
	status   string
	width    int
	quitting bool

	styles styles
}

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	selected lipgloss.Style
	muted    lipgloss.Style
	err      lipgloss.Style
	current  lipgloss.Style
	search   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		header:   lipgloss.NewStyle().Bold(true).Underline(true),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		current:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		search: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
	}
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{title: s, header: s, selected: s, muted: s, err: s, current: s, search: s}
}

// New 创建绑定到pipeline的模型。pipeline的生命周期归调用方所有。
func New(ctx context.Context, pipeline *browse.Pipeline, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "Search products..."
	ti.CharLimit = 80
	ti.Width = 40
	ti.SetValue(pipeline.SearchInput())

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	m := &Model{
		ctx:         ctx,
		pipeline:    pipeline,
		opts:        opts,
		log:         log,
		updates:     make(chan browse.View, 1),
		favsChanged: make(chan struct{}, 1),
		input:       ti,
		view:        pipeline.Snapshot(),
		favs:        make(map[int]bool),
		width:       100,
		styles:      defaultStyles(),
	}

	// 监听器可能在防抖定时器的goroutine上被调用；只保留最新的View
	m.unsubscribe = pipeline.Subscribe(func(v browse.View) {
		select {
		case <-m.updates:
		default:
		}
		select {
		case m.updates <- v:
		default:
		}
	})

	// 其他进程或命令修改收藏时也要刷新星标；多次变更合并为一次
	if opts.Favorites != nil {
		m.unsubFavs = opts.Favorites.Subscribe(func() {
			select {
			case m.favsChanged <- struct{}{}:
			default:
			}
		})
	}
	return m
}

// Close 注销管道和收藏监听器
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.unsubFavs != nil {
		m.unsubFavs()
	}
}

// Init 启动目录加载并开始等待管道更新
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForView(), m.loadFavorites(), m.waitForFavorites()}
	if m.opts.Loader != nil {
		cmds = append(cmds, m.load())
	}
	return tea.Batch(cmds...)
}

func (m *Model) waitForView() tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-m.updates:
			return viewMsg(v)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForFavorites() tea.Cmd {
	if m.opts.Favorites == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-m.favsChanged:
			ids, err := m.opts.Favorites.List(m.ctx)
			return favoritesChangedMsg{ids: ids, err: err}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.pipeline.Load(m.ctx, m.opts.Loader)}
	}
}

func (m *Model) loadFavorites() tea.Cmd {
	if m.opts.Favorites == nil {
		return nil
	}
	return func() tea.Msg {
		ids, err := m.opts.Favorites.List(m.ctx)
		return favoritesMsg{ids: ids, err: err}
	}
}

func (m *Model) toggleFavorite(id int) tea.Cmd {
	if m.opts.Favorites == nil {
		return nil
	}
	return func() tea.Msg {
		if _, err := m.opts.Favorites.Toggle(m.ctx, id); err != nil {
			return favoritesMsg{err: err}
		}
		ids, err := m.opts.Favorites.List(m.ctx)
		return favoritesMsg{ids: ids, err: err}
	}
}

// Update 处理消息
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.applyView(browse.View(msg))
		return m, m.waitForView()

	case loadedMsg:
		switch {
		case msg.err == nil:
		case sferrors.IsClosed(msg.err):
			// 退出时管道先关闭
		case sferrors.IsFetchError(msg.err):
			m.log.WithError(msg.err).Warn("catalog load failed")
		default:
			m.log.WithError(msg.err).Error("catalog load failed")
		}
		m.applyView(m.pipeline.Snapshot())
		return m, nil

	case favoritesMsg:
		m.applyFavorites(msg)
		return m, nil

	case favoritesChangedMsg:
		m.applyFavorites(favoritesMsg(msg))
		return m, m.waitForFavorites()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.focused {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		m.focused = false
		m.input.Blur()
		m.pipeline.FlushSearch()
		m.applyView(m.pipeline.Snapshot())
		return m, nil
	case "esc":
		m.focused = false
		m.input.Blur()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.pipeline.SetSearchQuery(v)
	}
	return m, cmd
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "/":
		m.focused = true
		return m, m.input.Focus()
	case "left", "h":
		m.pipeline.PrevPage()
	case "right", "l":
		m.pipeline.NextPage()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Products)-1 {
			m.cursor++
		}
	case "c":
		m.pipeline.SetCategory(m.nextCategory())
	case "d":
		m.preset = (m.preset + 1) % len(DatePresets)
		m.pipeline.SetDateRange(m.presetRange())
	case "r":
		m.preset = 0
		m.input.SetValue("")
		m.pipeline.ResetFilters()
	case "f", " ":
		if p, ok := m.selected(); ok {
			return m, m.toggleFavorite(p.ID)
		}
		return m, nil
	default:
		return m, nil
	}
	m.applyView(m.pipeline.Snapshot())
	return m, nil
}

func (m *Model) applyFavorites(msg favoritesMsg) {
	if msg.err != nil {
		m.status = "favorites: " + msg.err.Error()
		return
	}
	m.favs = make(map[int]bool, len(msg.ids))
	for _, id := range msg.ids {
		m.favs[id] = true
	}
}

func (m *Model) applyView(v browse.View) {
	m.view = v
	if m.cursor >= len(v.Products) {
		m.cursor = len(v.Products) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if !m.focused && v.PendingSearch != m.input.Value() {
		m.input.SetValue(v.PendingSearch)
	}
}

func (m *Model) selected() (model.Product, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Products) {
		return model.Product{}, false
	}
	return m.view.Products[m.cursor], true
}

// nextCategory 在 all 和已加载的类别之间循环
func (m *Model) nextCategory() string {
	order := append([]string{browse.AllCategories}, m.view.Categories...)
	current := m.view.Filter.Category
	for i, c := range order {
		if c == current {
			return order[(i+1)%len(order)]
		}
	}
	return browse.AllCategories
}

func (m *Model) presetRange() *browse.DateRange {
	p := DatePresets[m.preset]
	if p.Days == 0 {
		return nil
	}
	anchor := m.opts.Anchor
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}
	return &browse.DateRange{From: anchor.AddDate(0, 0, -p.Days), To: anchor}
}

// View 渲染界面
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.styles.title.Render("Storefront"))
	sb.WriteString("\n\n")

	search := m.styles.search
	if m.focused {
		search = search.BorderForeground(lipgloss.Color("205"))
	}
	sb.WriteString(search.Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.filterLine())
	sb.WriteString("\n\n")

	sb.WriteString(Render(m.view, RenderOptions{
		Favorites: m.favs,
		Cursor:    m.cursor,
		Styles:    &m.styles,
	}))

	if m.status != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.err.Render(m.status))
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.muted.Render("/ search  ←/→ page  ↑/↓ select  c category  d dates  f favorite  r reset  q quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (m *Model) filterLine() string {
	cat := model.CategoryLabel(m.view.Filter.Category)
	if m.view.Filter.Category == browse.AllCategories {
		cat = "All categories"
	}
	parts := []string{
		"category: " + cat,
		"dates: " + DatePresets[m.preset].Label,
	}
	if m.view.Query != "" {
		parts = append(parts, "?"+m.view.Query)
	}
	return m.styles.muted.Render(strings.Join(parts, "  |  "))
}

// RenderOptions 配置Render
type RenderOptions struct {
	Favorites map[int]bool
	// Cursor 是高亮的行，小于0表示不高亮
	Cursor int
	Styles *styles
}

// Render 将View渲染为纯文本表格和分页器，也用于非交互输出
func Render(v browse.View, opts RenderOptions) string {
	st := opts.Styles
	if st == nil {
		plain := plainStyles()
		st = &plain
	}

	var sb strings.Builder
	switch {
	case v.Loading && !v.Loaded:
		sb.WriteString("Loading catalog...\n")
		return sb.String()
	case v.Err != nil:
		sb.WriteString(st.err.Render("Failed to load catalog: " + v.Err.Error()))
		sb.WriteString("\n")
		return sb.String()
	case v.Loaded && v.Filtered == 0:
		sb.WriteString("No products match the current filters.\n")
		return sb.String()
	}

	sb.WriteString(st.header.Render(fmt.Sprintf("%-3s %-5s %-38s %-20s %9s  %-10s", "", "ID", "Title", "Category", "Price", "Added")))
	sb.WriteString("\n")
	for i, p := range v.Products {
		mark := " "
		if opts.Favorites[p.ID] {
			mark = "★"
		}
		row := fmt.Sprintf("%-3s %-5d %-38s %-20s %9.2f  %-10s",
			mark, p.ID, truncate(p.Title, 38), truncate(model.CategoryLabel(p.Category), 20), p.Price, p.DateAdded.Format("2006-01-02"))
		if i == opts.Cursor {
			row = st.selected.Render(row)
		}
		sb.WriteString(row)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(pager(v, st))
	sb.WriteString(st.muted.Render(fmt.Sprintf("   %d of %d products", v.Filtered, v.Total)))
	sb.WriteString("\n")
	return sb.String()
}

func pager(v browse.View, st *styles) string {
	var parts []string
	if v.HasPrev() {
		parts = append(parts, "‹")
	}
	for _, n := range v.Pages {
		label := fmt.Sprintf("%d", n)
		if n == v.Page {
			label = st.current.Render("[" + label + "]")
		}
		parts = append(parts, label)
	}
	if v.HasNext() {
		parts = append(parts, "›")
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
