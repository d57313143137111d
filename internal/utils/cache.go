package utils

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheItem 包装缓存数据和过期时间
type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// TTLCache 带过期时间的本地 LRU 缓存，并发安全
type TTLCache[V any] struct {
	lruCache *lru.Cache[string, cacheItem[V]]
	ttl      time.Duration
	now      func() time.Time
}

// NewTTLCache 创建容量为 size 的缓存，条目在 ttl 后过期
func NewTTLCache[V any](size int, ttl time.Duration) *TTLCache[V] {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		log.Fatalf("Failed to create LRU cache: %v", err)
	}
	return &TTLCache[V]{lruCache: l, ttl: ttl, now: time.Now}
}

// Set 设置缓存
func (c *TTLCache[V]) Set(key string, data V) {
	c.lruCache.Add(key, cacheItem[V]{
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 获取缓存，不存在或已过期时 ok 为 false
func (c *TTLCache[V]) Get(key string) (data V, ok bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return data, false
	}

	// 检查过期
	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return data, false
	}

	return val.data, true
}

// Delete 删除指定缓存
func (c *TTLCache[V]) Delete(key string) {
	c.lruCache.Remove(key)
}

func (c *TTLCache[V]) Len() int {
	return c.lruCache.Len()
}
