package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-importer/internal/api"
	"recipe-importer/internal/core/importer/reference"
	"recipe-importer/internal/core/scraper/fetch"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// referenceData 參考資料檔格式
type referenceData struct {
	Ingredients []common.ReferenceIngredient `json:"ingredients"`
	Tags        []common.ReferenceTag        `json:"tags"`
}

// loadReferenceData 載入食材與標籤參考資料，檔案不存在時回傳空資料
func loadReferenceData(path string) referenceData {
	var data referenceData
	raw, err := os.ReadFile(path)
	if err != nil {
		common.LogWarn("參考資料檔未載入，以空資料啟動",
			zap.String("path", path),
			zap.Error(err),
		)
		return data
	}
	if err := common.ParseJSONStrict(string(raw), &data); err != nil {
		common.LogWarn("參考資料檔解析失敗，以空資料啟動",
			zap.String("path", path),
			zap.Error(err),
		)
		return referenceData{}
	}
	return data
}

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("locale", cfg.Scraper.Locale),
		zap.Int("image_workers", cfg.Scraper.ImageWorkers),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// 初始化頁面快取
	pageCache := fetch.NewPageCache(cfg)
	// 只在快取開啟但初始化失敗時才 Fatal
	if cfg.Cache.Enabled && pageCache == nil {
		common.LogFatal("Failed to initialize page cache")
	}
	defer pageCache.Close()

	// 載入參考資料
	refPath := os.Getenv("REFERENCE_DATA_FILE")
	if refPath == "" {
		refPath = "data/reference.json"
	}
	refData := loadReferenceData(refPath)
	repo := reference.NewMemoryRepository(refData.Ingredients, refData.Tags)
	common.LogInfo("參考資料已載入",
		zap.Int("ingredients", len(refData.Ingredients)),
		zap.Int("tags", len(refData.Tags)),
	)

	// 設置路由
	router, err := api.SetupRouter(cfg, pageCache, repo)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
