package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PageCache 已抓取頁面的快取
// 預設用記憶體內 TTL 快取，設定開啟時改走 Redis
type PageCache struct {
	config *config.Config
	redis  *redis.Client
	mu     sync.RWMutex
	store  map[string]cacheEntry
	stats  cacheStats
}

// cacheEntry 快取條目
type cacheEntry struct {
	html       string
	expiresAt  time.Time
	createdAt  time.Time
	lastAccess time.Time
}

// cacheStats 快取統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewPageCache 創建頁面快取，關閉時回傳 nil
func NewPageCache(cfg *config.Config) *PageCache {
	if !cfg.Cache.Enabled {
		common.LogInfo("頁面快取已停用")
		return nil
	}

	c := &PageCache{
		config: cfg,
		store:  make(map[string]cacheEntry),
	}

	if cfg.Cache.RedisEnabled {
		c.redis = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
		})
		if err := c.redis.Ping(context.Background()).Err(); err != nil {
			common.LogWarn("Redis 連線失敗，改用記憶體快取",
				zap.String("addr", cfg.Cache.RedisAddr),
				zap.Error(err),
			)
			c.redis = nil
		}
	}

	// 啟動清理過期快取的協程
	go c.startCleanup()

	common.LogInfo("頁面快取已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("存活時間", cfg.Cache.TTL),
		zap.Bool("redis", c.redis != nil),
	)

	return c
}

// Get 取得快取頁面，未命中回傳空字串
func (c *PageCache) Get(ctx context.Context, url string) (string, bool) {
	if c == nil {
		return "", false
	}

	key := c.generateKey(url)

	if c.redis != nil {
		html, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			common.LogCacheHit("page", key)
			return html, true
		}
		if err != redis.Nil {
			common.LogWarn("Redis 讀取失敗", zap.Error(err))
		}
		common.LogCacheMiss("page", key)
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.store[key]
	if !exists {
		c.stats.misses++
		common.LogCacheMiss("page", key)
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.store, key)
		c.stats.evictions++
		common.LogCacheMiss("page", key)
		return "", false
	}

	entry.lastAccess = time.Now()
	c.store[key] = entry
	c.stats.hits++
	common.LogCacheHit("page", key)
	return entry.html, true
}

// Set 寫入快取頁面
func (c *PageCache) Set(ctx context.Context, url, html string) {
	if c == nil || html == "" {
		return
	}

	key := c.generateKey(url)

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, html, c.config.Cache.TTL).Err(); err != nil {
			common.LogWarn("Redis 寫入失敗", zap.Error(err))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 容量滿時淘汰最久未使用的條目
	if len(c.store) >= c.config.Cache.MaxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.store[key] = cacheEntry{
		html:       html,
		expiresAt:  now.Add(c.config.Cache.TTL),
		createdAt:  now,
		lastAccess: now,
	}
}

// evictOldest 淘汰最久未訪問的條目，呼叫端需持有鎖
func (c *PageCache) evictOldest() {
	var oldestKey string
	var oldestAccess time.Time
	for key, entry := range c.store {
		if oldestKey == "" || entry.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.store, oldestKey)
		c.stats.evictions++
	}
}

// startCleanup 週期性清除過期條目
func (c *PageCache) startCleanup() {
	ticker := time.NewTicker(c.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.store {
			if now.After(entry.expiresAt) {
				delete(c.store, key)
				c.stats.evictions++
			}
		}
		c.mu.Unlock()
	}
}

// Close 關閉快取
func (c *PageCache) Close() {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Close(); err != nil {
		common.LogWarn("Redis 關閉失敗", zap.Error(err))
	}
}

// generateKey 生成快取鍵
func (c *PageCache) generateKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "page:" + hex.EncodeToString(hash[:])
}
