package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"
)

// requestEntry 一筆進行中或剛結束的請求
type requestEntry struct {
	inFlight bool
	doneAt   time.Time
}

var (
	// 請求指紋表，用於去重
	requestCache = struct {
		sync.Mutex
		requests map[string]*requestEntry
	}{
		requests: make(map[string]*requestEntry),
	}

	// 啟動自動清理 goroutine（只啟動一次）
	cleanupOnce sync.Once
)

// startDeduplicationCleanup 啟動自動清理 goroutine
func startDeduplicationCleanup(window time.Duration) {
	cleanupOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				now := time.Now()
				requestCache.Lock()
				for k, entry := range requestCache.requests {
					if !entry.inFlight && now.Sub(entry.doneAt) > 10*window {
						delete(requestCache.requests, k)
					}
				}
				requestCache.Unlock()
			}
		}()
	})
}

// Deduplication 請求去重中間件
// 探索與解析是長時間串流：同一份請求在串流進行中重送一律擋下，
// 串流結束後只在 dedupWindow 內視為連點，之後的重新執行放行
func Deduplication(cfg *config.Config) gin.HandlerFunc {
	window := time.Second
	if cfg != nil && cfg.DedupWindow > 0 {
		window = cfg.DedupWindow
	}
	startDeduplicationCleanup(window)

	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint, ok := requestFingerprint(c)
		if !ok {
			c.Next()
			return
		}

		now := time.Now()
		requestCache.Lock()
		if entry, exists := requestCache.requests[fingerprint]; exists {
			if entry.inFlight || now.Sub(entry.doneAt) <= window {
				requestCache.Unlock()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error": "Identical request already running or just finished",
					"code":  common.ErrCodeTooManyRequests,
				})
				return
			}
		}
		requestCache.requests[fingerprint] = &requestEntry{inFlight: true}
		requestCache.Unlock()

		c.Next()

		// 串流結束後保留指紋一個時間窗，吸收連點重送
		requestCache.Lock()
		requestCache.requests[fingerprint] = &requestEntry{doneAt: time.Now()}
		requestCache.Unlock()
	}
}

// requestFingerprint 請求指紋：方法、路徑加請求體雜湊
func requestFingerprint(c *gin.Context) (string, bool) {
	fingerprint := c.Request.Method + ":" + c.Request.URL.Path
	if c.Request.Body == nil {
		return fingerprint, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.LogError("Failed to read request body", zap.Error(err))
		return "", false
	}

	// 恢復請求體
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	hash := sha256.Sum256(body)
	return fingerprint + ":" + hex.EncodeToString(hash[:]), true
}
