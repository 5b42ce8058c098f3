package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
)

// 默认的Prometheus指标前缀
const defaultMetricPrefix = "storefront"

// PrometheusExporter 将指标导出为Prometheus文本格式
type PrometheusExporter struct {
	metrics *Metrics
	prefix  string
	// 服务名称，用于标签
	service string
	mu      sync.Mutex
}

// NewPrometheusExporter 创建一个新的Prometheus导出器
func NewPrometheusExporter(metrics *Metrics, service string) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: metrics,
		prefix:  defaultMetricPrefix,
		service: service,
	}
}

// SetPrefix 设置指标前缀
func (p *PrometheusExporter) SetPrefix(prefix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefix = prefix
}

// Export 导出Prometheus格式的指标
func (p *PrometheusExporter) Export() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.metrics.Snapshot()
	if s == nil {
		return ""
	}

	var buf bytes.Buffer
	p.addGauge(&buf, "uptime_seconds", "Seconds since the collector started", s.UptimeSeconds)

	p.addCounter(&buf, "http_requests_total", "Total number of served HTTP requests", s.Requests)
	p.addCounter(&buf, "http_request_errors_total", "Total number of HTTP requests answered with 5xx", s.RequestErrors)

	p.addCounter(&buf, "catalog_fetches_total", "Total number of remote catalog calls", s.Fetches)
	p.addCounter(&buf, "catalog_fetch_errors_total", "Total number of failed remote catalog calls", s.FetchErrors)
	p.addGauge(&buf, "catalog_products", "Number of products in the loaded catalog", float64(s.CatalogSize))

	p.addCounter(&buf, "cache_hits_total", "Total number of fetch cache hits", s.CacheHits)
	p.addCounter(&buf, "cache_misses_total", "Total number of fetch cache misses", s.CacheMisses)
	p.addGauge(&buf, "cache_hit_ratio", "Fetch cache hit ratio", s.CacheHitRatio)

	p.addCounter(&buf, "filter_passes_total", "Total number of catalog filter passes", s.FilterPasses)
	p.addCounter(&buf, "favorites_changes_total", "Total number of favorites mutations", s.FavoritesChanges)
	p.addGauge(&buf, "favorites", "Number of favorite products", float64(s.FavoritesCount))

	if s.RequestLatency != nil {
		p.addHistogram(&buf, "http_request_duration_ns", "HTTP request latency in nanoseconds", s.RequestLatency)
	}
	return buf.String()
}

func (p *PrometheusExporter) header(buf *bytes.Buffer, name, help, kind string) string {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s %s\n", metricName, kind)
	return metricName
}

// addCounter 添加计数器类型指标
func (p *PrometheusExporter) addCounter(buf *bytes.Buffer, name, help string, value uint64) {
	metricName := p.header(buf, name, help, "counter")
	fmt.Fprintf(buf, "%s{service=%q} %d\n\n", metricName, p.service, value)
}

// addGauge 添加仪表类型指标
func (p *PrometheusExporter) addGauge(buf *bytes.Buffer, name, help string, value float64) {
	metricName := p.header(buf, name, help, "gauge")
	fmt.Fprintf(buf, "%s{service=%q} %g\n\n", metricName, p.service, value)
}

// addHistogram 添加直方图类型指标，桶计数为累积值
func (p *PrometheusExporter) addHistogram(buf *bytes.Buffer, name, help string, h *HistogramSnapshot) {
	metricName := p.header(buf, name, help, "histogram")

	var cumulative uint64
	for i, c := range h.BucketCounts {
		cumulative += c
		fmt.Fprintf(buf, "%s_bucket{service=%q,le=\"%d\"} %d\n", metricName, p.service, h.BucketBounds[i], cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{service=%q,le=\"+Inf\"} %d\n", metricName, p.service, h.Count)
	fmt.Fprintf(buf, "%s_sum{service=%q} %d\n", metricName, p.service, h.Sum)
	fmt.Fprintf(buf, "%s_count{service=%q} %d\n\n", metricName, p.service, h.Count)
}

// ServeHTTP 实现http.Handler接口，用于提供Prometheus指标端点
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(p.Export()))
}
