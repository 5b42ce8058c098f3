// Package configs provides configuration structures and utilities for the storefront.
// It offers mechanisms for loading, validating, and saving configuration from
// JSON and YAML files. The configuration is split into one section per component:
// the HTTP server, the catalog client, the catalog cache, the browse pipeline,
// the favorites store, logging and metrics.
//
// Package configs 提供商店前端的配置结构和工具。
// 它提供从JSON和YAML文件加载、验证和保存配置的机制。
// 配置按组件划分：HTTP服务、商品目录客户端、目录缓存、浏览管道、收藏存储、日志和指标。
package configs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/storefront/pkg/codec"
)

// DateLayout is the layout of catalog.reference_date.
const DateLayout = "2006-01-02"

// Config represents the complete configuration for the storefront.
//
// Config 表示商店前端的完整配置。
type Config struct {
	// Server configures the HTTP API
	// Server 配置HTTP接口
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Catalog configures the remote product catalog client
	// Catalog 配置远程商品目录客户端
	Catalog CatalogConfig `json:"catalog" yaml:"catalog" mapstructure:"catalog"`

	// Cache configures the read-through cache in front of the catalog
	// Cache 配置目录前的读穿缓存
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Browse configures the filter and pagination pipeline
	// Browse 配置过滤与分页管道
	Browse BrowseConfig `json:"browse" yaml:"browse" mapstructure:"browse"`

	// Favorites configures where the favorites set is persisted
	// Favorites 配置收藏集合的持久化位置
	Favorites FavoritesConfig `json:"favorites" yaml:"favorites" mapstructure:"favorites"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Metrics configures counters and the Prometheus endpoint
	// Metrics 配置计数器和Prometheus端点
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// ServerConfig contains settings for the HTTP server.
//
// ServerConfig 包含HTTP服务的设置。
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	// Addr 是监听地址，例如 ":8080"
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Mode is the gin mode ("debug", "release", "test")
	// Mode 是gin运行模式（"debug"、"release"、"test"）
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CatalogConfig contains settings for the catalog client.
//
// CatalogConfig 包含商品目录客户端的设置。
type CatalogConfig struct {
	// BaseURL is the root of the catalog API
	// BaseURL 是目录接口的根地址
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each outbound request
	// Timeout 限制每个外发请求的时长
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// ReferenceDate anchors the synthesized date-added window (YYYY-MM-DD)
	// ReferenceDate 是合成上架日期窗口的基准日（YYYY-MM-DD）
	ReferenceDate string `json:"reference_date" yaml:"reference_date" mapstructure:"reference_date"`

	// WindowMonths is the length of the date-added window
	// WindowMonths 是上架日期窗口的月数
	WindowMonths int `json:"window_months" yaml:"window_months" mapstructure:"window_months"`

	// Validate rejects malformed product records
	// Validate 拒绝格式错误的商品记录
	Validate bool `json:"validate" yaml:"validate" mapstructure:"validate"`
}

// CacheConfig contains settings for the catalog cache.
//
// CacheConfig 包含目录缓存的设置。
type CacheConfig struct {
	// Enable puts the cache in front of the catalog client
	// Enable 决定是否在目录客户端前启用缓存
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// MaxEntries is the maximum number of cached responses (0 = unlimited)
	// MaxEntries 是缓存响应的最大数量（0 = 无限制）
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	ProductsTTL   time.Duration `json:"products_ttl" yaml:"products_ttl" mapstructure:"products_ttl"`
	ProductTTL    time.Duration `json:"product_ttl" yaml:"product_ttl" mapstructure:"product_ttl"`
	CategoriesTTL time.Duration `json:"categories_ttl" yaml:"categories_ttl" mapstructure:"categories_ttl"`

	// CleanInterval 是后台清理过期响应的间隔，0表示只在读取时删除
	CleanInterval time.Duration `json:"clean_interval" yaml:"clean_interval" mapstructure:"clean_interval"`
}

// BrowseConfig contains settings for the browse pipeline.
//
// BrowseConfig 包含浏览管道的设置。
type BrowseConfig struct {
	// SearchDebounce is the quiet period before a typed query is applied
	// SearchDebounce 是输入查询生效前的静默时长
	SearchDebounce time.Duration `json:"search_debounce" yaml:"search_debounce" mapstructure:"search_debounce"`

	// Location is the IANA zone date-range bounds are evaluated in
	// Location 是计算日期范围边界所用的IANA时区
	Location string `json:"location" yaml:"location" mapstructure:"location"`
}

// FavoritesConfig contains settings for the favorites store.
//
// FavoritesConfig 包含收藏存储的设置。
type FavoritesConfig struct {
	// Backend is "memory" or "sqlite"
	// Backend 为 "memory" 或 "sqlite"
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Path is the database file when Backend is "sqlite"
	// Path 是Backend为"sqlite"时的数据库文件
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Key is the storage key of the id set
	// Key 是ID集合的存储键
	Key string `json:"key" yaml:"key" mapstructure:"key"`

	// Codec 是持久化ID集合的编码："json" 或 "json-pretty"
	Codec string `json:"codec" yaml:"codec" mapstructure:"codec"`
}

// LogConfig contains settings for logging.
//
// LogConfig 包含日志记录的设置。
type LogConfig struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error")
	// Level 设置最低日志级别（"debug"、"info"、"warn"、"error"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format ("text", "json")
	// Format 指定日志格式（"text"、"json"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output determines where logs are written ("stdout", "stderr", "file")
	// Output 确定日志写入的位置（"stdout"、"stderr"、"file"）
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// FilePath is the path to the log file when Output is "file"
	// FilePath 是当Output为"file"时的日志文件路径
	FilePath string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`
}

// MetricsConfig contains settings for metrics collection.
//
// MetricsConfig 包含指标收集的设置。
type MetricsConfig struct {
	// Enable determines whether metrics collection is active
	// Enable 确定是否启用指标收集
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Level controls the detail of metrics collection ("basic", "detailed", "disabled")
	// Level 控制指标收集的详细程度（"basic"、"detailed"、"disabled"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Path is the route the Prometheus text format is served on
	// Path 是提供Prometheus文本格式的路由
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// HistogramBuckets is the number of request latency buckets
	// HistogramBuckets 是请求延迟直方图的桶数量
	HistogramBuckets int `json:"histogram_buckets" yaml:"histogram_buckets" mapstructure:"histogram_buckets"`
}

// ExtensionsConfig contains settings for extensions.
//
// ExtensionsConfig 包含扩展的设置。
type ExtensionsConfig struct {
	// HotReload contains settings for dynamic configuration reloading
	// HotReload 包含动态配置重新加载的设置
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for hot reloading.
//
// HotReloadConfig 包含热重载的设置。
type HotReloadConfig struct {
	// Enable determines whether hot reloading is active
	// Enable 确定是否启用热重载
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// WatchInterval is how often the polling watcher checks for changes
	// WatchInterval 是轮询监视器检查配置更改的频率
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a new Config with default values.
//
// DefaultConfig 返回具有默认值的新Config。
//
// Returns:
//   - *Config: A new configuration instance with default values
//
// 返回：
//   - *Config: 具有默认值的新配置实例
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // SSE流不设写超时
			ShutdownTimeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:       "https://dummyjson.com",
			Timeout:       10 * time.Second,
			ReferenceDate: "2026-02-12",
			WindowMonths:  6,
			Validate:      true,
		},
		Cache: CacheConfig{
			Enable:        true,
			MaxEntries:    1024,
			ProductsTTL:   time.Minute,
			ProductTTL:    5 * time.Minute,
			CategoriesTTL: 10 * time.Minute,
			CleanInterval: time.Minute,
		},
		Browse: BrowseConfig{
			SearchDebounce: 300 * time.Millisecond,
			Location:       "UTC",
		},
		Favorites: FavoritesConfig{
			Backend: "sqlite",
			Path:    "data/favorites.db",
			Key:     "ecommerce-favorites",
			Codec:   "json",
		},
		Log: LogConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: "storefront.log",
		},
		Metrics: MetricsConfig{
			Enable:           true,
			Level:            "basic",
			Path:             "/metrics",
			HistogramBuckets: 32,
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable:        false,
				WatchInterval: 30 * time.Second,
			},
		},
	}
}

// ReferenceTime parses ReferenceDate as a UTC midnight.
//
// ReferenceTime 将ReferenceDate解析为UTC零点。
func (c CatalogConfig) ReferenceTime() (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, c.ReferenceDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog.reference_date: %w", err)
	}
	return t, nil
}

// LoadLocation resolves Location; empty means UTC.
func (b BrowseConfig) LoadLocation() (*time.Location, error) {
	if b.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(b.Location)
	if err != nil {
		return nil, fmt.Errorf("browse.location: %w", err)
	}
	return loc, nil
}

// LoadFromFile loads configuration from a file.
// It supports both YAML and JSON formats, detected from the file extension.
// Fields absent from the file keep their default values.
//
// LoadFromFile 从文件加载配置。
// 它支持YAML和JSON格式，根据文件扩展名自动检测格式。文件中缺失的字段保留默认值。
//
// Parameters:
//   - filename: Path to the configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
//
// 参数：
//   - filename: 配置文件的路径
//
// 返回：
//   - *Config: 加载的配置
//   - error: 如果加载失败则返回错误
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file, strings.TrimPrefix(filepath.Ext(filename), "."))
}

// LoadFromReader loads configuration from an io.Reader.
//
// LoadFromReader 从io.Reader加载配置。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
//
// 参数：
//   - r: 提供配置数据的读取器
//   - format: 数据的格式（"json"、"yaml"或"yml"）
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	// 空输入视为全部使用默认值
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file, choosing YAML or JSON from the
// file extension.
//
// SaveToFile 将配置保存到文件，根据文件扩展名选择YAML或JSON格式。
func (c *Config) SaveToFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	if ext == ".json" {
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	} else {
		encoder := yaml.NewEncoder(file)
		encoder.SetIndent(2)
		err = encoder.Encode(c)
		if cerr := encoder.Close(); err == nil {
			err = cerr
		}
	}

	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}

// Validate checks that all settings have valid values.
//
// Validate 验证配置。
//
// Returns:
//   - error: An error describing the first validation failure, or nil if valid
//
// 返回：
//   - error: 描述第一个验证失败的错误，如果有效则为nil
func (c *Config) Validate() error {
	// 服务设置
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be one of: debug, release, test")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	// 目录设置
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url must be an absolute URL")
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive")
	}
	if _, err := c.Catalog.ReferenceTime(); err != nil {
		return err
	}
	if c.Catalog.WindowMonths <= 0 {
		return fmt.Errorf("catalog.window_months must be positive")
	}

	// 缓存设置
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative")
	}
	if c.Cache.ProductsTTL < 0 || c.Cache.ProductTTL < 0 || c.Cache.CategoriesTTL < 0 || c.Cache.CleanInterval < 0 {
		return fmt.Errorf("cache ttls must be non-negative")
	}

	// 浏览设置
	if c.Browse.SearchDebounce < 0 {
		return fmt.Errorf("browse.search_debounce must be non-negative")
	}
	if _, err := c.Browse.LoadLocation(); err != nil {
		return err
	}

	// 收藏设置
	switch c.Favorites.Backend {
	case "memory":
	case "sqlite":
		if c.Favorites.Path == "" {
			return fmt.Errorf("favorites.path must be specified when favorites.backend is 'sqlite'")
		}
	default:
		return fmt.Errorf("favorites.backend must be one of: memory, sqlite")
	}
	if c.Favorites.Key == "" {
		return fmt.Errorf("favorites.key must not be empty")
	}
	if _, err := codec.GetCodec(c.Favorites.Codec); err != nil {
		return fmt.Errorf("favorites.codec: %w", err)
	}

	// 日志设置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	switch c.Log.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("log.output must be one of: stdout, stderr, file")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		return fmt.Errorf("log.file_path must be specified when log.output is 'file'")
	}

	// 指标设置
	if c.Metrics.Enable {
		switch c.Metrics.Level {
		case "basic", "detailed", "disabled":
		default:
			return fmt.Errorf("metrics.level must be one of: basic, detailed, disabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/'")
		}
		if c.Metrics.HistogramBuckets <= 0 {
			return fmt.Errorf("metrics.histogram_buckets must be positive")
		}
	}

	if c.Extensions.HotReload.Enable && c.Extensions.HotReload.WatchInterval < time.Second {
		return fmt.Errorf("extensions.hot_reload.watch_interval must be at least 1 second")
	}

	return nil
}
