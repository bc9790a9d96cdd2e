package discovery

import (
	"context"
	"sync"
	"sync/atomic"

	"recipe-importer/internal/core/scraper/fetch"
	"recipe-importer/internal/core/scraper/provider"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// imageQueue 縮圖補齊隊列
// N 個 worker 從同一條隊列取工作，限制同時外連數；取消後不再取新工作，
// 已在途的抓取不強制中斷
type imageQueue struct {
	fetcher   fetch.Fetcher
	provider  provider.Provider
	workers   int
	processed int64
}

// newImageQueue 創建縮圖補齊隊列
func newImageQueue(fetcher fetch.Fetcher, prov provider.Provider, workers int) *imageQueue {
	return &imageQueue{
		fetcher:  fetcher,
		provider: prov,
		workers:  workers,
	}
}

// run 補齊所有缺縮圖的連結，全部處理完或取消後返回
func (q *imageQueue) run(ctx context.Context, links []common.DiscoveredRecipeLink, onLoaded func(recipeURL, imageURL string)) {
	if len(links) == 0 {
		return
	}

	jobs := make(chan common.DiscoveredRecipeLink)

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				q.process(ctx, link, onLoaded)
			}
		}()
	}

	// 取消時停止派工，讓 worker 自然收尾
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		jobs <- link
	}
	close(jobs)
	wg.Wait()

	common.LogInfo("縮圖補齊結束",
		zap.Int("pending", len(links)),
		zap.Int64("processed", atomic.LoadInt64(&q.processed)),
	)
}

// process 抓取單一食譜頁，只為了取出縮圖網址
func (q *imageQueue) process(ctx context.Context, link common.DiscoveredRecipeLink, onLoaded func(recipeURL, imageURL string)) {
	// 派工與執行之間可能已取消
	if ctx.Err() != nil {
		return
	}

	html, err := q.fetcher.FetchPage(ctx, link.URL)
	if err != nil {
		common.LogDebug("縮圖補齊抓取失敗",
			zap.String("url", link.URL),
			zap.Error(err),
		)
		return
	}

	recipe, err := q.provider.ConvertPage(html, link.URL)
	if err != nil || recipe.ImageURL == "" {
		return
	}

	atomic.AddInt64(&q.processed, 1)
	onLoaded(link.URL, recipe.ImageURL)
}
