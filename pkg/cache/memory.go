package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	sferrors "github.com/yourusername/storefront/pkg/errors"
)

// memoryCache is a simple in-memory cache implementation.
// When MaxEntries is reached the oldest inserted entry is evicted.
//
// memoryCache 是一个简单的内存缓存实现。
// 达到MaxEntries时淘汰最早插入的条目。
type memoryCache struct {
	name   string
	config *Config
	mu     sync.Mutex
	items  map[string]cacheItem
	seq    uint64
	stats  Stats
	closed bool

	stop    chan struct{}
	cleaner sync.WaitGroup
}

// cacheItem represents a single item in the cache with its value and expiration time
//
// cacheItem 表示缓存中的单个项目及其值和过期时间
type cacheItem struct {
	value      interface{}
	expiration time.Time
	inserted   uint64
}

// NewWithOptions creates a new cache instance with the provided options.
//
// NewWithOptions 创建一个具有提供的选项的新缓存实例。
//
// Parameters:
//   - name: The name of the cache instance
//   - options: A list of option functions to configure the cache
//
// Returns:
//   - ICache: The created cache instance
//   - error: An error if the cache creation fails
func NewWithOptions(name string, options ...Option) (ICache, error) {
	config := NewDefaultConfig()
	config.Name = name

	for _, option := range options {
		option(config)
	}

	return New(config)
}

// New creates a new cache instance with the provided configuration.
// If config is nil, default configuration will be used.
//
// New 创建一个具有提供的配置的新缓存实例。
// 如果config为nil，将使用默认配置。
func New(config *Config) (ICache, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	c := &memoryCache{
		name:   config.Name,
		config: config,
		items:  make(map[string]cacheItem),
		stop:   make(chan struct{}),
	}
	if config.CleanInterval > 0 {
		c.cleaner.Add(1)
		go c.cleanerLoop(config.CleanInterval)
	}
	return c, nil
}

// Get retrieves a value from the cache.
//
// Get 从缓存中检索值。
func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, sferrors.ErrClosed
	}

	item, found := c.items[key]
	if !found {
		c.stats.Misses++
		return nil, false, nil
	}

	// Drop expired entries lazily
	// 惰性删除过期条目
	if !item.expiration.IsZero() && c.config.Now().After(item.expiration) {
		delete(c.items, key)
		c.stats.Expired++
		c.stats.Misses++
		return nil, false, nil
	}

	c.stats.Hits++
	return item.value, true, nil
}

// Set adds a value to the cache with the specified TTL.
//
// Set 将值添加到缓存中，并指定TTL。
func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return sferrors.ErrClosed
	}

	// Use the provided TTL, or the default if not specified
	// 使用提供的TTL，如果未指定则使用默认值
	expiration := time.Time{}
	if ttl > 0 {
		expiration = c.config.Now().Add(ttl)
	} else if ttl == 0 && c.config.DefaultTTL > 0 {
		expiration = c.config.Now().Add(c.config.DefaultTTL)
	}

	if _, exists := c.items[key]; !exists && c.config.MaxEntries > 0 && len(c.items) >= c.config.MaxEntries {
		c.evictOldest()
	}

	c.seq++
	c.items[key] = cacheItem{
		value:      value,
		expiration: expiration,
		inserted:   c.seq,
	}
	return nil
}

// Delete removes a value from the cache.
//
// Delete 从缓存中删除值。
func (c *memoryCache) Delete(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, sferrors.ErrClosed
	}

	if _, exists := c.items[key]; !exists {
		return false, nil
	}
	delete(c.items, key)
	return true, nil
}

// Clear removes all values from the cache.
//
// Clear 删除缓存中的所有值。
func (c *memoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return sferrors.ErrClosed
	}
	c.items = make(map[string]cacheItem)
	return nil
}

// Stats returns a copy of the cache statistics.
//
// Stats 返回缓存统计信息的副本。
func (c *memoryCache) Stats(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	statsCopy := c.stats
	statsCopy.EntryCount = int64(len(c.items))
	return &statsCopy, nil
}

// Close releases the cache contents.
//
// Close 释放缓存内容。
func (c *memoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.items = nil
	c.closed = true
	close(c.stop)
	c.mu.Unlock()

	c.cleaner.Wait()
	return nil
}

// evictOldest removes the entry inserted first. Caller holds c.mu.
//
// evictOldest 删除最先插入的条目。调用者持有c.mu。
func (c *memoryCache) evictOldest() {
	var (
		oldestKey string
		oldestSeq uint64
		first     = true
	)
	for k, item := range c.items {
		if first || item.inserted < oldestSeq {
			oldestKey, oldestSeq, first = k, item.inserted, false
		}
	}
	if !first {
		delete(c.items, oldestKey)
		c.stats.Evictions++
	}
}
