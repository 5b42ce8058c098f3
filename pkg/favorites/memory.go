package favorites

import (
	"context"
	"fmt"

	"github.com/yourusername/storefront/pkg/cache"
)

// MemoryKV is a process-local KV built on the storefront cache with entries
// that never expire.
//
// MemoryKV 是基于商店前端缓存的进程内KV，条目永不过期。
type MemoryKV struct {
	c cache.ICache
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() (*MemoryKV, error) {
	c, err := cache.NewWithOptions("favorites", cache.WithTTL(0), cache.WithMaxEntryCount(0))
	if err != nil {
		return nil, err
	}
	return &MemoryKV{c: c}, nil
}

// Get implements KV.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := m.c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("favorites: unexpected value type %T", v)
	}
	return append([]byte(nil), b...), true, nil
}

// Put implements KV.
func (m *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	return m.c.Set(ctx, key, append([]byte(nil), value...), cache.NoExpiration)
}

// Close releases the underlying cache.
func (m *MemoryKV) Close() error {
	return m.c.Close()
}
