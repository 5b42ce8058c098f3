package cache

import (
	"fmt"
	"time"
)

// Config defines the configuration options for a cache instance.
//
// Config 定义缓存实例的配置选项。
type Config struct {
	// Name of the cache instance, used for logging
	// 缓存实例的名称，用于日志记录
	Name string `json:"name" yaml:"name"`

	// MaxEntries is the maximum number of entries the cache can hold (0 = unlimited)
	// MaxEntries 是缓存可以容纳的最大条目数（0 = 无限制）
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// DefaultTTL is used when Set is called with a zero TTL (0 = never expire)
	// DefaultTTL 在以零TTL调用Set时使用（0 = 永不过期）
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// CleanInterval is how often expired entries are swept in the background (0 = lazy only)
	// CleanInterval 是后台清理过期条目的间隔（0 = 仅惰性删除）
	CleanInterval time.Duration `json:"clean_interval" yaml:"clean_interval"`

	// Now returns the current time; overridable for tests
	// Now 返回当前时间；测试时可覆盖
	Now func() time.Time `json:"-" yaml:"-"`
}

// NewDefaultConfig returns a Config with sensible default values.
//
// NewDefaultConfig 返回具有合理默认值的Config。
func NewDefaultConfig() *Config {
	return &Config{
		Name:       "storefront",
		MaxEntries: 1024,
		DefaultTTL: 5 * time.Minute,
		Now:        time.Now,
	}
}

// Validate checks if the configuration is valid.
//
// Validate 检查配置是否有效。
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max entries must be non-negative")
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("default TTL must be non-negative")
	}
	if c.CleanInterval < 0 {
		return fmt.Errorf("clean interval must be non-negative")
	}
	if c.Now == nil {
		return fmt.Errorf("clock function cannot be nil")
	}
	return nil
}

// Option is a function that configures a Config.
//
// Option 是一个配置Config的函数。
type Option func(*Config)

// WithMaxEntryCount sets the maximum number of entries in the cache.
// If set to 0, there is no limit on the number of entries.
//
// WithMaxEntryCount 设置缓存中的最大条目数。
// 如果设置为0，则条目数量没有限制。
func WithMaxEntryCount(count int) Option {
	return func(c *Config) {
		c.MaxEntries = count
	}
}

// WithTTL sets the default time-to-live for cache entries.
//
// WithTTL 设置缓存条目的默认生存时间。
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.DefaultTTL = ttl
	}
}

// WithClock overrides the time source.
//
// WithClock 覆盖时间源。
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithCleanInterval starts a background sweep of expired entries.
//
// WithCleanInterval 启动后台过期条目清理。
func WithCleanInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CleanInterval = interval
	}
}
