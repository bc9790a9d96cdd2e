package scrape

import (
	"encoding/json"
	"net/http"
	"sync"

	"recipe-importer/internal/core/scraper/discovery"
	"recipe-importer/internal/core/scraper/parse"
	"recipe-importer/internal/core/scraper/provider"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 探索與解析處理程序
type Handler struct {
	config          *config.Config
	registry        *provider.Registry
	discoveryEngine *discovery.Engine
	parseEngine     *parse.Engine
}

// NewHandler 創建探索與解析處理程序
func NewHandler(cfg *config.Config, registry *provider.Registry, discoveryEngine *discovery.Engine, parseEngine *parse.Engine) *Handler {
	return &Handler{
		config:          cfg,
		registry:        registry,
		discoveryEngine: discoveryEngine,
		parseEngine:     parseEngine,
	}
}

// ProviderInfo Provider 列表項目
type ProviderInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// HandleListProviders 列出已註冊的食譜來源
func (h *Handler) HandleListProviders(c *gin.Context) {
	providers := h.registry.List()
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderInfo{ID: p.ID(), DisplayName: p.DisplayName()})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

// DiscoverRequest 探索請求
type DiscoverRequest struct {
	Provider   string `json:"provider" binding:"required"` // 食譜來源識別碼
	MaxRecipes int    `json:"max_recipes,omitempty"`       // 探索上限，0 表示不限制
	Locale     string `json:"locale,omitempty"`            // 語系，未填用設定值
	LoadImages bool   `json:"load_images,omitempty"`       // 是否補齊缺少的縮圖
}

// discoverEvent NDJSON 串流中的一筆事件
type discoverEvent struct {
	Type      string              `json:"type"` // progress | image
	Progress  *discovery.Progress `json:"progress,omitempty"`
	RecipeURL string              `json:"recipe_url,omitempty"`
	ImageURL  string              `json:"image_url,omitempty"`
}

// HandleDiscover 執行一次探索，進度快照以 NDJSON 串流回傳
// 用戶端斷線即取消探索
func (h *Handler) HandleDiscover(c *gin.Context) {
	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	prov, err := h.registry.Get(req.Provider)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": common.ErrCodeUnknownProvider})
		return
	}

	locale := req.Locale
	if locale == "" {
		locale = h.config.Scraper.Locale
	}
	maxRecipes := req.MaxRecipes
	if maxRecipes == 0 {
		maxRecipes = h.config.Scraper.MaxRecipes
	}

	ctx := c.Request.Context()

	// NDJSON 串流寫入，補齊回呼與進度回報共用同一條連線
	c.Header("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(c.Writer)
	var mu sync.Mutex
	writeEvent := func(ev discoverEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(ev); err != nil {
			return
		}
		c.Writer.Flush()
	}

	opts := discovery.Options{
		MaxRecipes:   maxRecipes,
		Locale:       locale,
		ImageWorkers: h.config.Scraper.ImageWorkers,
	}

	var enrichDone chan struct{}
	if req.LoadImages {
		enrichDone = make(chan struct{})
		opts.OnImageLoaded = func(recipeURL, imageURL string) {
			writeEvent(discoverEvent{Type: "image", RecipeURL: recipeURL, ImageURL: imageURL})
		}
		opts.OnEnrichmentComplete = func() {
			close(enrichDone)
		}
	}

	stream, err := h.discoveryEngine.Discover(ctx, prov, opts)
	if err != nil {
		// 語系不支援是唯一會在這裡冒出的致命錯誤
		if common.IsUnsupportedLocale(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": common.ErrCodeUnsupportedLocale})
			return
		}
		common.LogError("探索啟動失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "discovery failed", "code": common.ErrCodeInternalError})
		return
	}

	for progress := range stream {
		p := progress
		writeEvent(discoverEvent{Type: "progress", Progress: &p})
	}

	// 有開縮圖補齊時，等補齊結束或用戶端斷線
	if enrichDone != nil {
		select {
		case <-enrichDone:
		case <-ctx.Done():
		}
	}
}

// ParseRequest 解析請求
type ParseRequest struct {
	Provider string               `json:"provider" binding:"required"`
	Links    []parse.SelectedLink `json:"links" binding:"required"`
}

// HandleParse 解析使用者選取的連結，進度以 NDJSON 串流回傳
func (h *Handler) HandleParse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	prov, err := h.registry.Get(req.Provider)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": common.ErrCodeUnknownProvider})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(c.Writer)

	stream := h.parseEngine.ParseSelected(c.Request.Context(), prov, req.Links)
	for progress := range stream {
		if err := enc.Encode(progress); err != nil {
			return
		}
		c.Writer.Flush()
	}
}
