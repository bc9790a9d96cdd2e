package parse

import (
	"context"

	"recipe-importer/internal/core/scraper/fetch"
	"recipe-importer/internal/core/scraper/provider"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Phase 解析階段
type Phase string

const (
	// PhaseParsing 解析進行中
	PhaseParsing Phase = "parsing"
	// PhaseComplete 解析完成
	PhaseComplete Phase = "complete"
)

// SelectedLink 使用者選取的待解析連結
type SelectedLink struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// FailedRecipe 解析失敗的項目
type FailedRecipe struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// failureCode 區分網路抓取失敗與結構化資料解析失敗
func failureCode(err error) string {
	if common.IsFetchFailure(err) {
		return common.ErrCodeFetchFailure
	}
	return common.ErrCodeParseFailure
}

// Progress 解析進度快照，依選取清單順序遞增
type Progress struct {
	Phase         Phase                    `json:"phase"`
	Current       int                      `json:"current"`
	Total         int                      `json:"total"`
	ParsedRecipes []common.ConvertedRecipe `json:"parsed_recipes"`
	FailedRecipes []FailedRecipe           `json:"failed_recipes"`
}

// Engine 食譜解析引擎
// 逐一抓取選取的連結並轉成標準化食譜，單一項目失敗不中斷整批
type Engine struct {
	fetcher fetch.Fetcher
}

// NewEngine 創建解析引擎
func NewEngine(fetcher fetch.Fetcher) *Engine {
	return &Engine{fetcher: fetcher}
}

// ParseSelected 解析使用者選取的連結
// 回傳進度快照串流；每處理一個項目發一次快照，終態 Phase 為 complete
func (e *Engine) ParseSelected(ctx context.Context, prov provider.Provider, links []SelectedLink) <-chan Progress {
	out := make(chan Progress, 1)
	go e.run(ctx, prov, links, out)
	return out
}

func (e *Engine) run(ctx context.Context, prov provider.Provider, links []SelectedLink, out chan<- Progress) {
	defer close(out)

	var parsed []common.ConvertedRecipe
	var failed []FailedRecipe
	current := 0
	total := len(links)

	out <- snapshot(PhaseParsing, current, total, parsed, failed)

	for _, link := range links {
		// 每次抓取前檢查取消訊號
		if ctx.Err() != nil {
			break
		}

		html, err := e.fetcher.FetchPage(ctx, link.URL)
		if err != nil {
			failed = append(failed, FailedRecipe{URL: link.URL, Title: link.Title, Error: err.Error(), Code: failureCode(err)})
			current++
			out <- snapshot(PhaseParsing, current, total, parsed, failed)
			continue
		}

		recipe, err := prov.ConvertPage(html, link.URL)
		if err != nil {
			common.LogWarn("食譜頁解析失敗",
				zap.String("url", link.URL),
				zap.Error(err),
			)
			failed = append(failed, FailedRecipe{URL: link.URL, Title: link.Title, Error: err.Error(), Code: failureCode(err)})
		} else {
			common.LogDebug("食譜解析成功",
				zap.String("title", recipe.Title),
				zap.String("ingredients", common.FormatIngredients(recipe.Ingredients)),
			)
			parsed = append(parsed, *recipe)
		}

		current++
		out <- snapshot(PhaseParsing, current, total, parsed, failed)
	}

	out <- snapshot(PhaseComplete, current, total, parsed, failed)

	common.LogInfo("食譜解析完成",
		zap.String("provider", prov.ID()),
		zap.Int("parsed", len(parsed)),
		zap.Int("failed", len(failed)),
	)
}

// snapshot 產生一份進度快照，複製切片避免之後被改動
func snapshot(phase Phase, current, total int, parsed []common.ConvertedRecipe, failed []FailedRecipe) Progress {
	p := make([]common.ConvertedRecipe, len(parsed))
	copy(p, parsed)
	f := make([]FailedRecipe, len(failed))
	copy(f, failed)
	return Progress{
		Phase:         phase,
		Current:       current,
		Total:         total,
		ParsedRecipes: p,
		FailedRecipes: f,
	}
}
