// Package cache provides a small thread-safe local cache used by the storefront
// to keep remote catalog responses and locally persisted key-value entries.
// It supports per-entry TTL, a bounded entry count and hit/miss statistics.
//
// Package cache 提供一个小型线程安全本地缓存，商店前端用它来保存远程目录响应
// 以及本地持久化的键值条目。它支持按条目的TTL、有界条目数以及命中/未命中统计。
package cache

import (
	"context"
	"time"
)

// NoExpiration can be passed to Set to keep an entry until it is deleted or evicted.
//
// NoExpiration 可传递给Set，使条目在被删除或淘汰前一直保留。
const NoExpiration time.Duration = -1

// ICache defines the interface for the cache.
// All methods are thread-safe and can be called concurrently.
//
// ICache 定义缓存的接口。
// 所有方法都是线程安全的，可以并发调用。
type ICache interface {
	// Get retrieves a value from the cache.
	// If the key is not found or has expired, (nil, false, nil) is returned.
	//
	// Get 从缓存中检索值。
	// 如果未找到键或键已过期，则返回 (nil, false, nil)。
	//
	// Parameters:
	//   - ctx: Context for the operation, can be used for cancellation
	//   - key: The key to retrieve
	//
	// Returns:
	//   - interface{}: The cached value if found
	//   - bool: True if the key was found and is valid
	//   - error: Error if the retrieval operation failed
	Get(ctx context.Context, key string) (interface{}, bool, error)

	// Set adds a value to the cache with the specified TTL.
	// If ttl is 0, the default TTL from the configuration is used.
	// If ttl is negative, the entry does not expire.
	//
	// Set 将值添加到缓存中，并指定TTL。
	// 如果ttl为0，则使用配置中的默认TTL。
	// 如果ttl为负数，则条目不会过期。
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	// Returns true if the key was found and removed.
	//
	// Delete 从缓存中删除值。
	// 如果找到并删除了键，则返回true。
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all values from the cache.
	//
	// Clear 删除缓存中的所有值。
	Clear(ctx context.Context) error

	// Stats returns statistics about the cache.
	//
	// Stats 返回有关缓存的统计信息。
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the cache. After calling Close every operation returns ErrClosed.
	//
	// Close 释放缓存。调用Close后，所有操作都返回ErrClosed。
	Close() error
}

// Stats represents cache statistics.
//
// Stats 表示缓存统计信息。
type Stats struct {
	// EntryCount is the current number of entries in the cache
	// EntryCount 是缓存中当前的条目数量
	EntryCount int64 `json:"entry_count"`

	// Hits is the number of successful cache retrievals
	// Hits 是成功的缓存检索次数
	Hits int64 `json:"hits"`

	// Misses is the number of retrievals where the key was absent or expired
	// Misses 是键不存在或已过期的检索次数
	Misses int64 `json:"misses"`

	// Evictions is the number of entries removed due to the entry limit
	// Evictions 是由于条目限制而删除的条目数
	Evictions int64 `json:"evictions"`

	// Expired is the number of entries dropped because their TTL elapsed
	// Expired 是由于TTL到期而丢弃的条目数
	Expired int64 `json:"expired"`
}

// HitRatio returns hits / (hits + misses), or 0 when nothing was looked up.
//
// HitRatio 返回 命中/(命中+未命中)，若没有查询则返回0。
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
