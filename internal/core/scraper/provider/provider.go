package provider

import (
	"context"
	"sort"
	"sync"

	"recipe-importer/internal/pkg/common"
)

// Provider 食譜來源站點介面
// 每個站點一個實作，集中站點專屬知識：網址解析、分類探索、連結抽取與頁面轉換
type Provider interface {
	// ID 取得 Provider 識別碼（registry 的鍵）
	ID() string

	// DisplayName 取得站點顯示名稱
	DisplayName() string

	// ResolveBaseURL 解析指定語系的站點網址
	// 站點沒有該語系的版本時回傳 UnsupportedLocaleError
	ResolveBaseURL(locale string) (string, error)

	// DiscoverCategoryURLs 抓取首頁並抽出分類頁網址
	// 抓取或解析失敗回傳空清單而非錯誤：站點暫時不可用只讓探索結果變少，不中斷
	DiscoverCategoryURLs(ctx context.Context, baseURL string) []string

	// ExtractRecipeLinks 從一個分類頁的 HTML 抽出食譜連結（純函數）
	// 輸出內以 URL 去重，且必須排除本身是分類頁的連結
	ExtractRecipeLinks(html string) []common.DiscoveredRecipeLink

	// ConvertPage 把一個食譜頁的 HTML 轉成標準化食譜（純函數）
	// 找不到可辨識的結構化資料時回傳 ParseFailureError
	ConvertPage(html, pageURL string) (*common.ConvertedRecipe, error)
}

// Registry Provider 註冊表，以識別碼為鍵
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry 創建空的註冊表
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register 註冊 Provider，同識別碼會覆蓋
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get 依識別碼取得 Provider
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, common.NewError(common.ErrCodeUnknownProvider, "未知的食譜來源: "+id, 404, nil)
	}
	return p, nil
}

// List 取得所有 Provider，依識別碼排序
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
