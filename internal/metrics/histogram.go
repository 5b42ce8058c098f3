package metrics

import (
	"math"
	"sync"
	"time"
)

// Histogram 请求延迟直方图，桶边界按对数分布
type Histogram struct {
	mu     sync.Mutex
	bounds []int64 // 纳秒
	counts []uint64
	count  uint64
	sum    int64
	max    int64
}

// HistogramSnapshot 直方图快照
type HistogramSnapshot struct {
	BucketBounds []int64  `json:"bucket_bounds_ns"`
	BucketCounts []uint64 `json:"bucket_counts"`
	Count        uint64   `json:"count"`
	Sum          int64    `json:"sum_ns"`
	Max          int64    `json:"max_ns"`
	P50          int64    `json:"p50_ns"`
	P99          int64    `json:"p99_ns"`
}

// NewHistogram 创建一个覆盖 [lo, hi] 的直方图，bucketCount 为桶数量
func NewHistogram(bucketCount int, lo, hi time.Duration) *Histogram {
	if bucketCount <= 0 {
		bucketCount = 10
	}
	if lo <= 0 {
		lo = 100 * time.Microsecond
	}
	if hi <= lo {
		hi = 10 * time.Second
	}

	bounds := make([]int64, bucketCount+1)
	ratio := float64(hi) / float64(lo)
	for i := range bounds {
		bounds[i] = int64(float64(lo) * math.Pow(ratio, float64(i)/float64(bucketCount)))
	}
	return &Histogram{
		bounds: bounds,
		counts: make([]uint64, len(bounds)),
	}
}

// Observe 记录一次耗时
func (h *Histogram) Observe(d time.Duration) {
	ns := int64(d)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[h.bucketFor(ns)]++
	h.count++
	h.sum += ns
	if ns > h.max {
		h.max = ns
	}
}

// 二分查找第一个 >= ns 的边界；超过最后一个边界的值落在最后一个桶
func (h *Histogram) bucketFor(ns int64) int {
	i, j := 0, len(h.bounds)-1
	for i < j {
		mid := (i + j) / 2
		if ns > h.bounds[mid] {
			i = mid + 1
		} else {
			j = mid
		}
	}
	return i
}

// Reset 清空直方图
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.counts {
		h.counts[i] = 0
	}
	h.count, h.sum, h.max = 0, 0, 0
}

// Snapshot 返回直方图的一致快照
func (h *Histogram) Snapshot() *HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &HistogramSnapshot{
		BucketBounds: append([]int64(nil), h.bounds...),
		BucketCounts: append([]uint64(nil), h.counts...),
		Count:        h.count,
		Sum:          h.sum,
		Max:          h.max,
	}
	s.P50 = h.percentile(0.5)
	s.P99 = h.percentile(0.99)
	return s
}

// percentile 返回目标计数所在桶的上边界
func (h *Histogram) percentile(p float64) int64 {
	if h.count == 0 {
		return 0
	}
	target := uint64(math.Ceil(float64(h.count) * p))
	var cumulative uint64
	for i, c := range h.counts {
		cumulative += c
		if cumulative >= target {
			return h.bounds[i]
		}
	}
	return h.bounds[len(h.bounds)-1]
}
