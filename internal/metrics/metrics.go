// Package metrics collects storefront runtime metrics: served requests, remote
// catalog fetches, fetch-cache effectiveness, filter passes and favorites
// activity. Counters are updated atomically so that handlers and background
// loads can record without coordination.
//
// Package metrics 采集商店前端运行时指标：处理的请求、远程目录获取、获取缓存效果、
// 过滤次数以及收藏活动。计数器以原子方式更新，处理器和后台加载无需协调即可记录。
package metrics

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Level defines the metrics collection level.
// Level 定义指标采集级别。
type Level int

const (
	// Disabled means metrics collection is turned off.
	// Disabled 表示禁用指标采集。
	Disabled Level = iota

	// Basic enables the counters.
	// Basic 启用计数器。
	Basic

	// Detailed additionally records the request latency histogram.
	// Detailed 额外记录请求延迟直方图。
	Detailed
)

// ParseLevel maps a configuration string to a Level. Unknown values mean Basic.
func ParseLevel(s string) Level {
	switch s {
	case "disabled", "off", "none":
		return Disabled
	case "detailed":
		return Detailed
	default:
		return Basic
	}
}

// Metrics is the storefront metrics collector.
//
// Metrics 是商店前端指标收集器。
type Metrics struct {
	level Level

	// HTTP requests
	// HTTP请求
	requests      uint64
	requestErrors uint64 // 5xx responses / 5xx响应

	// Remote catalog
	// 远程目录
	fetches     uint64
	fetchErrors uint64
	catalogSize int64

	// Fetch cache
	// 获取缓存
	cacheHits   uint64
	cacheMisses uint64

	// Browsing and favorites
	// 浏览和收藏
	filterPasses     uint64
	favoritesChanges uint64
	favoritesCount   int64

	latency *Histogram
	started time.Time
}

// Config defines metrics configuration options.
// Config 定义指标配置选项。
type Config struct {
	// Level determines the detail level of metrics collection
	// Level 指定指标采集的详细程度
	Level Level

	// HistogramBuckets is the number of latency buckets recorded at Detailed level
	// HistogramBuckets 是Detailed级别下记录的延迟桶数量
	HistogramBuckets int
}

// New creates a new metrics collector. A nil config means Basic.
//
// New 创建一个新的指标收集器。nil配置表示Basic级别。
//
// Parameters:
//   - config: Configuration options for the metrics collector
//
// Returns:
//   - *Metrics: A new metrics collector instance
func New(config *Config) *Metrics {
	if config == nil {
		config = &Config{Level: Basic}
	}
	m := &Metrics{
		level:   config.Level,
		started: time.Now(),
	}
	if config.Level == Detailed {
		m.latency = NewHistogram(config.HistogramBuckets, 100*time.Microsecond, 10*time.Second)
	}
	return m
}

// Level returns the collection level.
func (m *Metrics) Level() Level {
	return m.level
}

// RecordRequest records a served HTTP request.
//
// RecordRequest 记录一次已处理的HTTP请求。
func (m *Metrics) RecordRequest(status int, elapsed time.Duration) {
	if m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.requests, 1)
	if status >= 500 {
		atomic.AddUint64(&m.requestErrors, 1)
	}
	if m.latency != nil {
		m.latency.Observe(elapsed)
	}
}

// RecordFetch records a call to the remote catalog.
//
// RecordFetch 记录一次对远程目录的调用。
func (m *Metrics) RecordFetch(err error) {
	if m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.fetches, 1)
	if err != nil {
		atomic.AddUint64(&m.fetchErrors, 1)
	}
}

// SetCatalogSize records the number of products in the loaded catalog.
func (m *Metrics) SetCatalogSize(n int) {
	if m.level == Disabled {
		return
	}
	atomic.StoreInt64(&m.catalogSize, int64(n))
}

// OnHit records a fetch-cache hit.
func (m *Metrics) OnHit(string) {
	if m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.cacheHits, 1)
}

// OnMiss records a fetch-cache miss.
func (m *Metrics) OnMiss(string) {
	if m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.cacheMisses, 1)
}

// RecordFilterPass 记录一次目录过滤
func (m *Metrics) RecordFilterPass() {
	if m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.filterPasses, 1)
}

// RecordFavoritesChange 记录一次收藏变更及变更后的收藏数量
func (m *Metrics) RecordFavoritesChange(count int) {
	if m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.favoritesChanges, 1)
	atomic.StoreInt64(&m.favoritesCount, int64(count))
}

// Reset 重置所有计数器
func (m *Metrics) Reset() {
	for _, p := range []*uint64{
		&m.requests, &m.requestErrors, &m.fetches, &m.fetchErrors,
		&m.cacheHits, &m.cacheMisses, &m.filterPasses, &m.favoritesChanges,
	} {
		atomic.StoreUint64(p, 0)
	}
	atomic.StoreInt64(&m.catalogSize, 0)
	atomic.StoreInt64(&m.favoritesCount, 0)
	if m.latency != nil {
		m.latency.Reset()
	}
}

// Snapshot returns the current values, or nil when collection is disabled.
//
// Snapshot 返回当前值；禁用采集时返回nil。
func (m *Metrics) Snapshot() *Snapshot {
	if m.level == Disabled {
		return nil
	}

	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	ratio := 0.0
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	s := &Snapshot{
		Timestamp:        time.Now().UnixNano(),
		UptimeSeconds:    time.Since(m.started).Seconds(),
		Requests:         atomic.LoadUint64(&m.requests),
		RequestErrors:    atomic.LoadUint64(&m.requestErrors),
		Fetches:          atomic.LoadUint64(&m.fetches),
		FetchErrors:      atomic.LoadUint64(&m.fetchErrors),
		CatalogSize:      atomic.LoadInt64(&m.catalogSize),
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheHitRatio:    ratio,
		FilterPasses:     atomic.LoadUint64(&m.filterPasses),
		FavoritesChanges: atomic.LoadUint64(&m.favoritesChanges),
		FavoritesCount:   atomic.LoadInt64(&m.favoritesCount),
	}
	if m.latency != nil {
		s.RequestLatency = m.latency.Snapshot()
	}
	return s
}

// Snapshot 指标快照
type Snapshot struct {
	Timestamp     int64   `json:"timestamp"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	Requests      uint64 `json:"requests"`
	RequestErrors uint64 `json:"request_errors"`

	Fetches     uint64 `json:"fetches"`
	FetchErrors uint64 `json:"fetch_errors"`
	CatalogSize int64  `json:"catalog_size"`

	CacheHits     uint64  `json:"cache_hits"`
	CacheMisses   uint64  `json:"cache_misses"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`

	FilterPasses     uint64 `json:"filter_passes"`
	FavoritesChanges uint64 `json:"favorites_changes"`
	FavoritesCount   int64  `json:"favorites_count"`

	RequestLatency *HistogramSnapshot `json:"request_latency,omitempty"`
}

// String 返回指标快照的JSON字符串表示
func (s *Snapshot) String() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
