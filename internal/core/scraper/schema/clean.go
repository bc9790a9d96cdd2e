package schema

import (
	"regexp"
	"strings"
	"unicode"

	"recipe-importer/internal/pkg/common"
)

var quantityUnitPattern = regexp.MustCompile(`^([\d.,/]+)\s*(.*)$`)
var ingredientLinePattern = regexp.MustCompile(`^([\d.,/]+)\s*(\S+)\s+(.+)$`)

// SplitQuantityUnit 拆開數量與單位的複合字串
// "375 g" → ("375", "g")，"0.25" → ("0.25", "")，純文字回傳 ("", text)
func SplitQuantityUnit(text string) (quantity, unit string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	if m := quantityUnitPattern.FindStringSubmatch(text); m != nil {
		return strings.ReplaceAll(m[1], ",", "."), strings.TrimSpace(m[2])
	}
	return "", text
}

// ParseIngredientLine 解析一行原始食材文字
// "2 càs huile d'olive" → (2, càs, huile d'olive)；沒有數量時整行視為名稱（如 "sel"）
func ParseIngredientLine(text string) common.RecipeIngredient {
	text = cleanIngredientName(text)
	if m := ingredientLinePattern.FindStringSubmatch(text); m != nil {
		return common.RecipeIngredient{
			Quantity: strings.ReplaceAll(m[1], ",", "."),
			Unit:     m[2],
			Name:     cleanIngredientName(m[3]),
		}
	}
	return common.RecipeIngredient{Name: text}
}

// cleanIngredientName 去除不換行空白並壓縮空白，括號內容保留（可能含有用資訊）
func cleanIngredientName(name string) string {
	name = strings.ReplaceAll(name, " ", " ")
	return strings.Join(strings.Fields(name), " ")
}

// CleanTitle 全小寫標題補上字首大寫
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	if title != strings.ToLower(title) {
		return title
	}
	runes := []rune(title)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// CleanDescription 檢查描述不是被塞進來的食材清單
// 部分站點把食材放在 description 欄位，拿掉食材名稱後剩不到 20 個字就不可信
func CleanDescription(description string, ingredients []string) string {
	if description == "" || len(ingredients) == 0 {
		return description
	}

	cleaned := strings.ToLower(description)
	for _, ing := range ingredients {
		name := strings.TrimSpace(strings.SplitN(strings.ToLower(ing), "(", 2)[0])
		if name != "" {
			cleaned = strings.ReplaceAll(cleaned, name, "")
		}
	}

	var letters int
	for _, r := range cleaned {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			letters++
		}
	}
	if letters < 20 {
		return ""
	}
	return description
}

// CleanKeywords 過濾關鍵字：與標題相同或與某個食材同名的關鍵字是雜訊
// 部分站點會把食材與食譜標題混進 keywords
func CleanKeywords(keywords []string, ingredients []string, title string) []string {
	if len(keywords) == 0 {
		return nil
	}

	ingredientNames := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		name := strings.TrimSpace(strings.SplitN(strings.ToLower(ing), "(", 2)[0])
		if name != "" {
			ingredientNames[name] = struct{}{}
		}
	}
	titleLower := strings.ToLower(title)

	var cleaned []string
	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if kwLower == titleLower {
			continue
		}
		if _, isIngredient := ingredientNames[kwLower]; isIngredient {
			continue
		}
		cleaned = append(cleaned, kw)
	}
	return cleaned
}
