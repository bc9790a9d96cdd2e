package api

import (
	"context"
	"net/http"
	"time"

	"recipe-importer/internal/api/handlers/health"
	importerHandler "recipe-importer/internal/api/handlers/importer"
	scrapeHandler "recipe-importer/internal/api/handlers/scrape"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/importer/reference"
	"recipe-importer/internal/core/scraper/discovery"
	"recipe-importer/internal/core/scraper/fetch"
	"recipe-importer/internal/core/scraper/parse"
	"recipe-importer/internal/core/scraper/provider"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 非串流請求的超時設置
	timeoutDuration = 60 * time.Second
	// 請求體大小限制 (10MB)
	maxBodySize = 10 << 20
)

// SetupRouter 設置路由
// 串流路由（探索、解析）不套用請求超時，生命週期由用戶端連線決定
func SetupRouter(cfg *config.Config, pageCache *fetch.PageCache, repo reference.Repository) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 速率限制
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Int("image_workers", cfg.Scraper.ImageWorkers),
		zap.String("locale", cfg.Scraper.Locale),
	)

	// 初始化抓取客戶端與引擎
	fetchClient := fetch.NewClient(cfg, pageCache)
	discoveryEngine := discovery.NewEngine(fetchClient)
	parseEngine := parse.NewEngine(fetchClient)

	// 註冊食譜來源
	registry := provider.NewRegistry()
	registry.Register(provider.NewQuitoque(fetchClient))

	scrapeH := scrapeHandler.NewHandler(cfg, registry, discoveryEngine, parseEngine)
	importH := importerHandler.NewHandler(repo)

	// 全局中間件：注入配置
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		api.GET("/providers", scrapeH.HandleListProviders)

		// 串流路由：探索與解析
		scrapeGroup := api.Group("/scrape")
		scrapeGroup.Use(middleware.Deduplication(cfg))
		{
			scrapeGroup.POST("/discover", scrapeH.HandleDiscover)
			scrapeGroup.POST("/parse", scrapeH.HandleParse)
		}

		// 匯入會話路由，套用非串流超時
		importGroup := api.Group("/import")
		importGroup.Use(requestTimeout(timeoutDuration))
		{
			importGroup.GET("/reference/similar", importH.HandleFindSimilar)
			importGroup.POST("/sessions", importH.HandleCreateSession)
			importGroup.POST("/sessions/:id/mappings", importH.HandleAddMapping)
			importGroup.GET("/sessions/:id/progress", importH.HandleGetProgress)
			importGroup.POST("/sessions/:id/commit", importH.HandleCommitPhase)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Int("providers", len(registry.List())),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}

// requestTimeout 請求超時中間件
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeout),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
			})
			c.Abort()
		}
	}
}
