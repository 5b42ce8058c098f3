package cache

import "time"

// cleanerLoop 定期清理过期条目，直到缓存关闭
func (c *memoryCache) cleanerLoop(interval time.Duration) {
	defer c.cleaner.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanExpired()
		case <-c.stop:
			return
		}
	}
}

// cleanExpired 删除所有已过期的条目并返回删除的数量
func (c *memoryCache) cleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	now := c.config.Now()
	count := 0
	for key, item := range c.items {
		if !item.expiration.IsZero() && now.After(item.expiration) {
			delete(c.items, key)
			count++
		}
	}
	c.stats.Expired += int64(count)
	return count
}
