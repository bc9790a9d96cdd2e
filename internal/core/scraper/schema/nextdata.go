package schema

import (
	"sort"
	"strings"

	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

// maxTagSearchDepth 遞迴搜尋深度上限，避免循環結構
const maxTagSearchDepth = 10

// ExtractNextDataTags 從 __NEXT_DATA__ 內嵌 JSON 中撈出標籤
// 許多 Next.js 站點把食譜標籤放在這份頁面狀態裡，JSON-LD 反而沒有
func ExtractNextDataTags(doc *goquery.Document) []string {
	raw := strings.TrimSpace(doc.Find(`script#__NEXT_DATA__`).Text())
	if raw == "" {
		return nil
	}

	var data interface{}
	if err := common.ParseJSON(raw, &data); err != nil {
		return nil
	}

	return findTags(data, 0)
}

// findTags 在巢狀結構中尋找 tags / labels 陣列
// 支援純字串與帶 name 欄位的物件，內部標籤（未標示可顯示）會被濾掉
func findTags(data interface{}, depth int) []string {
	if depth > maxTagSearchDepth {
		return nil
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, key := range []string{"tags", "labels"} {
			list, ok := v[key].([]interface{})
			if !ok {
				continue
			}
			var result []string
			for _, tag := range list {
				if !isUserFacingTag(tag) {
					continue
				}
				switch t := tag.(type) {
				case string:
					if t != "" {
						result = append(result, t)
					}
				case map[string]interface{}:
					if name, _ := t["name"].(string); name != "" {
						result = append(result, name)
					}
				}
			}
			if len(result) > 0 {
				return result
			}
		}
		// 固定鍵順序走訪，同層多組標籤時結果才可重現
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if found := findTags(v[key], depth+1); found != nil {
				return found
			}
		}
	case []interface{}:
		for _, item := range v {
			if found := findTags(item, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

// isUserFacingTag 判斷標籤是否該呈現給使用者
// 純字串直接通過；物件必須明確帶 displayLabel / display_label 為 true
func isUserFacingTag(tag interface{}) bool {
	node, ok := tag.(map[string]interface{})
	if !ok {
		return true
	}
	if v, ok := node["displayLabel"].(bool); ok && v {
		return true
	}
	if v, ok := node["display_label"].(bool); ok && v {
		return true
	}
	return false
}
