package common

import (
	"fmt"
	"strings"
)

// RecipeIngredient 食譜中的原始食材（名稱、數量、單位取自來源網站）
type RecipeIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// PreparationStep 備料／烹調步驟，Title 可為空
type PreparationStep struct {
	Title        string   `json:"title,omitempty"`
	Instructions []string `json:"instructions"`
}

// Nutrition 營養資訊（字串保留來源格式，如 "876 kcal"）
type Nutrition struct {
	Calories      string `json:"calories,omitempty"`
	Fat           string `json:"fat,omitempty"`
	Carbohydrates string `json:"carbohydrates,omitempty"`
	Protein       string `json:"protein,omitempty"`
	ServingSize   string `json:"serving_size,omitempty"`
}

// ConvertedRecipe 標準化食譜
// 由 Provider 的 ConvertPage 產生，成功解析後不再修改
type ConvertedRecipe struct {
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Ingredients    []RecipeIngredient `json:"ingredients"`
	Tags           []string           `json:"tags,omitempty"`
	Nutrition      *Nutrition         `json:"nutrition,omitempty"`
	Steps          []PreparationStep  `json:"steps"`
	ImageURL       string             `json:"image_url,omitempty"`
	TotalTime      int                `json:"total_time,omitempty"`
	PrepTime       int                `json:"prep_time,omitempty"`
	CookTime       int                `json:"cook_time,omitempty"`
	Yields         string             `json:"yields,omitempty"`
	SourceURL      string             `json:"source_url"`
	SourceProvider string             `json:"source_provider"`
}

// DiscoveredRecipeLink 探索階段找到的食譜連結，URL 為唯一鍵
// 除 ImageURL 可於事後補齊外，發出後不再修改
type DiscoveredRecipeLink struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ReferenceIngredient 參考資料庫中的食材
type ReferenceIngredient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Season string `json:"season,omitempty"`
}

// ReferenceTag 參考資料庫中的標籤
type ReferenceTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ValidatedIngredient 驗證後的食材
// 身分（ID、Type、Season）取自參考資料庫，數量與單位保留匯入值
type ValidatedIngredient struct {
	ReferenceIngredient
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// ValidatedRecipe 套用對應表後的食譜，可直接交給儲存端
type ValidatedRecipe struct {
	Title          string                `json:"title"`
	Description    string                `json:"description,omitempty"`
	Ingredients    []ValidatedIngredient `json:"ingredients"`
	Tags           []ReferenceTag        `json:"tags,omitempty"`
	Nutrition      *Nutrition            `json:"nutrition,omitempty"`
	Steps          []PreparationStep     `json:"steps"`
	ImageURL       string                `json:"image_url,omitempty"`
	SourceURL      string                `json:"source_url"`
	SourceProvider string                `json:"source_provider"`
}

// FormatIngredients 格式化食材列表（記錄用）
func FormatIngredients(ingredients []RecipeIngredient) string {
	var sb strings.Builder
	for _, ing := range ingredients {
		sb.WriteString(fmt.Sprintf("- %s: %s%s\n", ing.Name, ing.Quantity, ing.Unit))
	}
	return sb.String()
}
