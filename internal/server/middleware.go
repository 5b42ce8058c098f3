package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/internal/metrics"
	"github.com/yourusername/storefront/pkg/cache"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID returns a middleware that propagates or assigns a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger returns a middleware that logs request information
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(requestIDKey),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

// RequestMetrics returns a middleware that counts requests and their latency.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordRequest(c.Writer.Status(), time.Since(start))
	}
}

// CacheMetrics returns a middleware that adds catalog cache statistics to the
// response headers.
func CacheMetrics(stats func(ctx context.Context) (*cache.Stats, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 头部必须在写入响应体之前设置
		s, err := stats(c.Request.Context())
		if err == nil {
			c.Header("X-Cache-Hits", fmt.Sprintf("%d", s.Hits))
			c.Header("X-Cache-Misses", fmt.Sprintf("%d", s.Misses))
			c.Header("X-Cache-Hit-Ratio", fmt.Sprintf("%.2f", s.HitRatio()))
			c.Header("X-Cache-Entries", fmt.Sprintf("%d", s.EntryCount))
		}
		c.Next()
	}
}
