package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Level 比對嚴格度
type Level int

const (
	// LevelStrict 嚴格比對
	LevelStrict Level = iota
	// LevelModerate 中等比對
	LevelModerate
	// LevelPermissive 寬鬆比對
	LevelPermissive
)

// Threshold 取得相似度門檻（0 為完全相同，越大越寬鬆）
func (l Level) Threshold() float64 {
	switch l {
	case LevelStrict:
		return 0.2
	case LevelModerate:
		return 0.4
	case LevelPermissive:
		return 0.6
	default:
		return 0.4
	}
}

// String 實現 fmt.Stringer
func (l Level) String() string {
	switch l {
	case LevelStrict:
		return "strict"
	case LevelModerate:
		return "moderate"
	case LevelPermissive:
		return "permissive"
	default:
		return "unknown"
	}
}

// Result 模糊搜尋結果
// Exact 與 Similar 擇一有意義：Exact 非 nil 時 Similar 必為空
type Result[T any] struct {
	Exact   *T  `json:"exact,omitempty"`
	Similar []T `json:"similar"`
}

var parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)

// Normalize 正規化比對鍵：小寫、去頭尾空白、壓縮連續空白
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// CleanName 移除括號註記，只用於食材名稱，標籤不適用
// 例如 "Tomato (canned)" → "Tomato"，讓它能對上既有的 "Tomato"
func CleanName(s string) string {
	s = parentheticalPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// scored 候選項目與其距離分數
type scored[T any] struct {
	item  T
	score float64
	index int
}

// Search 在 items 中搜尋 query
// 正規化後完全相等時直接回傳 Exact，否則依門檻回傳排序後的相似項目
func Search[T any](items []T, query string, keyOf func(T) string, level Level) Result[T] {
	normQuery := Normalize(query)
	if normQuery == "" || len(items) == 0 {
		return Result[T]{Similar: []T{}}
	}

	// 完全相等永遠優先，與嚴格度無關
	for i := range items {
		if Normalize(keyOf(items[i])) == normQuery {
			return Result[T]{Exact: &items[i], Similar: []T{}}
		}
	}

	threshold := level.Threshold()
	candidates := make([]scored[T], 0)
	for i := range items {
		score := distance(normQuery, Normalize(keyOf(items[i])))
		if score <= threshold {
			candidates = append(candidates, scored[T]{item: items[i], score: score, index: i})
		}
	}

	// 分數由低到高，同分依輸入順序
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score < candidates[b].score
	})

	similar := make([]T, 0, len(candidates))
	for _, c := range candidates {
		similar = append(similar, c.item)
	}
	return Result[T]{Similar: similar}
}

// distance 正規化編輯距離：Levenshtein 距離除以較長字串的長度
func distance(a, b string) float64 {
	if a == b {
		return 0
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
