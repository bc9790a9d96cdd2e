package schema

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

// Recipe 從 schema.org/Recipe 結構化資料抽出的原始欄位
// 欄位內容保持來源原樣，標準化交給 Provider
type Recipe struct {
	Name         string
	Description  string
	Ingredients  []string
	Instructions []string
	PrepTime     int // 分鐘
	CookTime     int
	TotalTime    int
	Yields       string
	Image        string
	Keywords     []string
	Nutrition    *common.Nutrition
}

// ExtractJSONLD 在頁面中尋找 schema.org/Recipe 的 JSON-LD 區塊
// 找不到可辨識的食譜資料時回傳 nil
func ExtractJSONLD(doc *goquery.Document) *Recipe {
	var recipe *Recipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var data interface{}
		if err := common.ParseJSON(raw, &data); err != nil {
			return true
		}

		node := findRecipeNode(data)
		if node == nil {
			return true
		}

		recipe = &Recipe{
			Name:         asString(node["name"]),
			Description:  asString(node["description"]),
			Ingredients:  asStringList(node["recipeIngredient"]),
			Instructions: extractInstructions(node["recipeInstructions"]),
			PrepTime:     parseISODuration(asString(node["prepTime"])),
			CookTime:     parseISODuration(asString(node["cookTime"])),
			TotalTime:    parseISODuration(asString(node["totalTime"])),
			Yields:       asString(node["recipeYield"]),
			Image:        extractImage(node["image"]),
			Keywords:     extractKeywords(node["keywords"]),
			Nutrition:    extractNutrition(node["nutrition"]),
		}
		return false
	})
	return recipe
}

// findRecipeNode 找出 Recipe 物件：直接型別、@graph 陣列或根層陣列都支援
func findRecipeNode(data interface{}) map[string]interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if isRecipeType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]interface{}); ok && isRecipeType(node["@type"]) {
					return node
				}
			}
		}
	case []interface{}:
		for _, item := range v {
			if node, ok := item.(map[string]interface{}); ok && isRecipeType(node["@type"]) {
				return node
			}
		}
	}
	return nil
}

// isRecipeType @type 可能是字串或字串陣列
func isRecipeType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// extractImage 支援字串、陣列、{url: ...} 物件三種格式，並過濾佔位圖
func extractImage(v interface{}) string {
	switch img := v.(type) {
	case string:
		return rejectPlaceholder(img)
	case []interface{}:
		if len(img) == 0 {
			return ""
		}
		switch first := img[0].(type) {
		case string:
			return rejectPlaceholder(first)
		case map[string]interface{}:
			return rejectPlaceholder(asString(first["url"]))
		}
	case map[string]interface{}:
		return rejectPlaceholder(asString(img["url"]))
	}
	return ""
}

func rejectPlaceholder(url string) string {
	if strings.Contains(strings.ToLower(url), "placeholder") {
		return ""
	}
	return url
}

// extractKeywords 支援逗號分隔字串與字串陣列
func extractKeywords(v interface{}) []string {
	switch kw := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(kw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []interface{}:
		return asStringList(kw)
	}
	return nil
}

// extractInstructions 支援純文字、字串陣列、HowToStep 與 HowToSection
func extractInstructions(v interface{}) []string {
	switch ins := v.(type) {
	case string:
		var out []string
		for _, line := range strings.Split(ins, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	case []interface{}:
		var out []string
		for _, item := range ins {
			switch step := item.(type) {
			case string:
				if s := strings.TrimSpace(step); s != "" {
					out = append(out, s)
				}
			case map[string]interface{}:
				if section, ok := step["itemListElement"].([]interface{}); ok {
					out = append(out, extractInstructions(section)...)
					continue
				}
				if text := strings.TrimSpace(asString(step["text"])); text != "" {
					out = append(out, text)
				}
			}
		}
		return out
	}
	return nil
}

// extractNutrition 讀取 NutritionInformation 常用欄位
func extractNutrition(v interface{}) *common.Nutrition {
	node, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	n := &common.Nutrition{
		Calories:      asString(node["calories"]),
		Fat:           asString(node["fatContent"]),
		Carbohydrates: asString(node["carbohydrateContent"]),
		Protein:       asString(node["proteinContent"]),
		ServingSize:   asString(node["servingSize"]),
	}
	if n.Calories == "" && n.Fat == "" && n.Carbohydrates == "" && n.Protein == "" {
		return nil
	}
	return n
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration 將 ISO 8601 時段（如 PT1H30M）轉成分鐘，無法解析回傳 0
func parseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	days, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	hours, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	return days*24*60 + hours*60 + minutes
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asStringList(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
