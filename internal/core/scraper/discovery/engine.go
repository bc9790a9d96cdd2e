package discovery

import (
	"context"

	"recipe-importer/internal/core/scraper/fetch"
	"recipe-importer/internal/core/scraper/provider"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Phase 探索階段
type Phase string

const (
	// PhaseDiscovering 探索進行中
	PhaseDiscovering Phase = "discovering"
	// PhaseComplete 探索完成
	PhaseComplete Phase = "complete"
)

// Progress 探索進度快照（不是差異量）
// 同一次探索中 RecipesFound 與 CategoriesScanned 單調遞增
type Progress struct {
	Phase             Phase                         `json:"phase"`
	RecipesFound      int                           `json:"recipes_found"`
	CategoriesScanned int                           `json:"categories_scanned"`
	TotalCategories   int                           `json:"total_categories"`
	IsComplete        bool                          `json:"is_complete"`
	Recipes           []common.DiscoveredRecipeLink `json:"recipes"`
}

// Options 探索選項
type Options struct {
	// MaxRecipes 探索上限，0 表示不限制
	MaxRecipes int
	// Locale 站點語系
	Locale string
	// OnImageLoaded 縮圖補齊完成時的回呼，nil 表示不補齊
	OnImageLoaded func(recipeURL, imageURL string)
	// OnEnrichmentComplete 縮圖補齊全部結束時的回呼，可為 nil
	OnEnrichmentComplete func()
	// ImageWorkers 縮圖補齊併發上限，0 時使用預設值
	ImageWorkers int
}

// defaultImageWorkers 縮圖補齊的預設併發上限
const defaultImageWorkers = 5

// Engine 食譜探索引擎
// 驅動 Provider 掃過所有分類頁，合併去重後以快照串流回報進度
type Engine struct {
	fetcher fetch.Fetcher
}

// NewEngine 創建探索引擎
func NewEngine(fetcher fetch.Fetcher) *Engine {
	return &Engine{fetcher: fetcher}
}

// Discover 探索一個站點的食譜連結
// 回傳進度快照串流；終態快照 IsComplete 必為 true，之後通道關閉
// 語系不支援是致命錯誤，直接回傳
func (e *Engine) Discover(ctx context.Context, prov provider.Provider, opts Options) (<-chan Progress, error) {
	baseURL, err := prov.ResolveBaseURL(opts.Locale)
	if err != nil {
		return nil, err
	}

	out := make(chan Progress, 1)
	go e.run(ctx, prov, baseURL, opts, out)
	return out, nil
}

func (e *Engine) run(ctx context.Context, prov provider.Provider, baseURL string, opts Options, out chan<- Progress) {
	defer close(out)

	// 取消訊號已觸發：只發一個空的終態快照
	if ctx.Err() != nil {
		out <- Progress{Phase: PhaseComplete, IsComplete: true, Recipes: []common.DiscoveredRecipeLink{}}
		return
	}

	categories := prov.DiscoverCategoryURLs(ctx, baseURL)
	common.LogInfo("開始探索食譜",
		zap.String("provider", prov.ID()),
		zap.Int("categories", len(categories)),
		zap.Int("max_recipes", opts.MaxRecipes),
	)

	seen := make(map[string]struct{})
	var found []common.DiscoveredRecipeLink
	scanned := 0

	for _, categoryURL := range categories {
		// 每個分類抓取前檢查取消訊號
		if ctx.Err() != nil {
			break
		}

		html, err := e.fetcher.FetchPage(ctx, categoryURL)
		if err != nil {
			// 單一分類失敗不中斷探索，仍計入掃描數
			common.LogWarn("分類頁抓取失敗",
				zap.String("category", categoryURL),
				zap.Error(err),
			)
			scanned++
			out <- snapshot(PhaseDiscovering, found, scanned, len(categories), false)
			continue
		}

		// 合併新連結：以 URL 去重，先見到的標題優先
		capped := false
		for _, link := range prov.ExtractRecipeLinks(html) {
			if _, dup := seen[link.URL]; dup {
				continue
			}
			if opts.MaxRecipes > 0 && len(found) >= opts.MaxRecipes {
				capped = true
				break
			}
			seen[link.URL] = struct{}{}
			found = append(found, link)
		}

		scanned++
		out <- snapshot(PhaseDiscovering, found, scanned, len(categories), false)

		if capped {
			break
		}
	}

	out <- snapshot(PhaseComplete, found, scanned, len(categories), true)

	common.LogInfo("食譜探索完成",
		zap.String("provider", prov.ID()),
		zap.Int("recipes_found", len(found)),
		zap.Int("categories_scanned", scanned),
	)

	// 縮圖補齊在終態快照之後執行，不阻塞串流結束
	if opts.OnImageLoaded != nil {
		workers := opts.ImageWorkers
		if workers <= 0 {
			workers = defaultImageWorkers
		}
		var missing []common.DiscoveredRecipeLink
		for _, link := range found {
			if link.ImageURL == "" {
				missing = append(missing, link)
			}
		}
		go func() {
			newImageQueue(e.fetcher, prov, workers).run(ctx, missing, opts.OnImageLoaded)
			if opts.OnEnrichmentComplete != nil {
				opts.OnEnrichmentComplete()
			}
		}()
	}
}

// snapshot 產生一份進度快照，複製連結切片避免之後被改動
func snapshot(phase Phase, found []common.DiscoveredRecipeLink, scanned, total int, complete bool) Progress {
	recipes := make([]common.DiscoveredRecipeLink, len(found))
	copy(recipes, found)
	return Progress{
		Phase:             phase,
		RecipesFound:      len(recipes),
		CategoriesScanned: scanned,
		TotalCategories:   total,
		IsComplete:        complete,
		Recipes:           recipes,
	}
}
