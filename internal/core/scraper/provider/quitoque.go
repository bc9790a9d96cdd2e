package provider

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"recipe-importer/internal/core/scraper/fetch"
	"recipe-importer/internal/core/scraper/schema"
	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const quitoqueID = "quitoque"

// 食譜網址以一段數字識別碼結尾，分類頁沒有
// 例：/recettes/poulet-roti-aux-herbes-12345 是食譜，/recettes/plats-vegetariens 是分類
var quitoqueRecipePattern = regexp.MustCompile(`^/recettes/[a-z0-9-]+-\d+$`)
var quitoqueCategoryPattern = regexp.MustCompile(`^/recettes/[a-z-]+$`)

// Quitoque quitoque.fr 的 Provider 實作
// 頁面是 Next.js 應用：食譜資料在 JSON-LD，標籤在 __NEXT_DATA__ 頁面狀態裡
type Quitoque struct {
	fetcher fetch.Fetcher
}

// NewQuitoque 創建 Quitoque Provider
func NewQuitoque(fetcher fetch.Fetcher) *Quitoque {
	return &Quitoque{fetcher: fetcher}
}

// ID 取得識別碼
func (q *Quitoque) ID() string {
	return quitoqueID
}

// DisplayName 取得顯示名稱
func (q *Quitoque) DisplayName() string {
	return "Quitoque"
}

// ResolveBaseURL 解析站點網址，Quitoque 只有法語版
func (q *Quitoque) ResolveBaseURL(locale string) (string, error) {
	if lang := strings.SplitN(strings.ToLower(locale), "-", 2)[0]; lang != "fr" {
		return "", common.NewUnsupportedLocaleError(quitoqueID, locale)
	}
	return "https://www.quitoque.fr", nil
}

// DiscoverCategoryURLs 抓取食譜總覽頁並抽出分類頁網址
func (q *Quitoque) DiscoverCategoryURLs(ctx context.Context, baseURL string) []string {
	html, err := q.fetcher.FetchPage(ctx, baseURL+"/recettes")
	if err != nil {
		common.LogWarn("分類探索失敗，回傳空清單",
			zap.String("provider", quitoqueID),
			zap.Error(err),
		)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		common.LogWarn("分類頁解析失敗，回傳空清單",
			zap.String("provider", quitoqueID),
			zap.Error(err),
		)
		return nil
	}

	seen := make(map[string]struct{})
	var categories []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := resolveURL(baseURL, href)
		if abs == "" {
			return
		}
		parsed, err := url.Parse(abs)
		if err != nil || !quitoqueCategoryPattern.MatchString(parsed.Path) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		categories = append(categories, abs)
	})

	return categories
}

// ExtractRecipeLinks 從分類頁 HTML 抽出食譜連結
func (q *Quitoque) ExtractRecipeLinks(html string) []common.DiscoveredRecipeLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []common.DiscoveredRecipeLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := resolveURL("https://www.quitoque.fr", href)
		if abs == "" {
			return
		}
		parsed, err := url.Parse(abs)
		if err != nil || !quitoqueRecipePattern.MatchString(parsed.Path) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}

		link := common.DiscoveredRecipeLink{URL: abs}

		// 標題優先取連結文字，其次取圖片 alt
		if title := strings.TrimSpace(s.Text()); title != "" {
			link.Title = strings.Join(strings.Fields(title), " ")
		}
		if img := s.Find("img").First(); img.Length() > 0 {
			if link.Title == "" {
				if alt, ok := img.Attr("alt"); ok {
					link.Title = strings.TrimSpace(alt)
				}
			}
			if src, ok := img.Attr("src"); ok {
				link.ImageURL = resolveURL("https://www.quitoque.fr", src)
			}
		}

		links = append(links, link)
	})

	return links
}

// ConvertPage 把食譜頁轉成標準化食譜
func (q *Quitoque) ConvertPage(html, pageURL string) (*common.ConvertedRecipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, common.NewParseFailureError(pageURL, "invalid html: "+err.Error())
	}

	raw := schema.ExtractJSONLD(doc)
	if raw == nil {
		return nil, common.NewParseFailureError(pageURL, "no structured recipe data found")
	}
	if raw.Name == "" {
		return nil, common.NewParseFailureError(pageURL, "structured data has no recipe name")
	}

	ingredients := make([]common.RecipeIngredient, 0, len(raw.Ingredients))
	for _, line := range raw.Ingredients {
		ingredients = append(ingredients, schema.ParseIngredientLine(line))
	}

	// JSON-LD 的 keywords 常缺漏，退回 __NEXT_DATA__ 頁面狀態
	tags := schema.CleanKeywords(raw.Keywords, raw.Ingredients, raw.Name)
	if len(tags) == 0 {
		tags = schema.ExtractNextDataTags(doc)
	}

	var steps []common.PreparationStep
	if len(raw.Instructions) > 0 {
		steps = []common.PreparationStep{{Instructions: raw.Instructions}}
	}

	return &common.ConvertedRecipe{
		Title:          schema.CleanTitle(raw.Name),
		Description:    schema.CleanDescription(raw.Description, raw.Ingredients),
		Ingredients:    ingredients,
		Tags:           tags,
		Nutrition:      raw.Nutrition,
		Steps:          steps,
		ImageURL:       raw.Image,
		TotalTime:      raw.TotalTime,
		PrepTime:       raw.PrepTime,
		CookTime:       raw.CookTime,
		Yields:         raw.Yields,
		SourceURL:      pageURL,
		SourceProvider: quitoqueID,
	}, nil
}

// resolveURL 把相對連結解析成絕對網址，無法解析回傳空字串
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := baseURL.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}
