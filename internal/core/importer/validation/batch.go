package validation

import (
	"recipe-importer/internal/core/importer/match"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// PendingIngredient 待人工驗證的食材與它的相似建議
type PendingIngredient struct {
	Original common.RecipeIngredient      `json:"original"`
	Key      string                       `json:"key"`
	Similar  []common.ReferenceIngredient `json:"similar"`
}

// PendingTag 待人工驗證的標籤與它的相似建議
type PendingTag struct {
	Name    string                `json:"name"`
	Key     string                `json:"key"`
	Similar []common.ReferenceTag `json:"similar"`
}

// BatchState 一次匯入批次的驗證會話
// 唯一品項表建立後不再變動；對應表隨使用者決定單調成長，
// 待驗證清單是初始化當下的固定快照，游標由呼叫端推進
type BatchState struct {
	ID string `json:"id"`

	UniqueIngredients map[string]common.RecipeIngredient `json:"unique_ingredients"`
	UniqueTags        map[string]string                  `json:"unique_tags"`

	IngredientMappings map[string]common.ReferenceIngredient `json:"ingredient_mappings"`
	TagMappings        map[string]common.ReferenceTag        `json:"tag_mappings"`

	IngredientsToValidate []PendingIngredient `json:"ingredients_to_validate"`
	TagsToValidate        []PendingTag        `json:"tags_to_validate"`

	ExactMatchIngredients []common.ValidatedIngredient `json:"exact_match_ingredients"`
	ExactMatchTags        []common.ReferenceTag        `json:"exact_match_tags"`
}

// Progress 驗證進度投影，純讀取不改動狀態
type Progress struct {
	TotalIngredients     int `json:"total_ingredients"`
	ValidatedIngredients int `json:"validated_ingredients"`
	TotalTags            int `json:"total_tags"`
	ValidatedTags        int `json:"validated_tags"`
	RemainingIngredients int `json:"remaining_ingredients"`
	RemainingTags        int `json:"remaining_tags"`
}

// IngredientKey 食材的正規化鍵：去括號註記後再正規化
func IngredientKey(name string) string {
	return match.Normalize(match.CleanName(name))
}

// TagKey 標籤的正規化鍵，不去括號
func TagKey(name string) string {
	return match.Normalize(name)
}

// Initialize 建立一次匯入批次的驗證會話
// 收集整批的唯一食材與標籤，逐一對參考資料做模糊比對：
// 食材用寬鬆等級（數量單位會從匯入值補回，偏好召回），
// 標籤用中等等級（錯標籤是純雜訊，偏好精確）
func Initialize(recipes []common.ConvertedRecipe, refIngredients []common.ReferenceIngredient, refTags []common.ReferenceTag) *BatchState {
	state := &BatchState{
		ID:                 common.GenerateUUID(),
		UniqueIngredients:  make(map[string]common.RecipeIngredient),
		UniqueTags:         make(map[string]string),
		IngredientMappings: make(map[string]common.ReferenceIngredient),
		TagMappings:        make(map[string]common.ReferenceTag),
	}

	// 唯一品項表：鍵為正規化名稱，先出現的原始項目優先
	var ingredientOrder []string
	var tagOrder []string
	for _, recipe := range recipes {
		for _, ing := range recipe.Ingredients {
			key := IngredientKey(ing.Name)
			if key == "" {
				continue
			}
			if _, exists := state.UniqueIngredients[key]; !exists {
				state.UniqueIngredients[key] = ing
				ingredientOrder = append(ingredientOrder, key)
			}
		}
		for _, tag := range recipe.Tags {
			key := TagKey(tag)
			if key == "" {
				continue
			}
			if _, exists := state.UniqueTags[key]; !exists {
				state.UniqueTags[key] = tag
				tagOrder = append(tagOrder, key)
			}
		}
	}

	// 有相似建議的項目排在前面，先給使用者容易決定的
	var ingWith, ingWithout []PendingIngredient
	for _, key := range ingredientOrder {
		original := state.UniqueIngredients[key]
		result := match.Search(refIngredients, match.CleanName(original.Name), func(i common.ReferenceIngredient) string {
			return i.Name
		}, match.LevelPermissive)

		if result.Exact != nil {
			state.IngredientMappings[key] = *result.Exact
			state.ExactMatchIngredients = append(state.ExactMatchIngredients, common.ValidatedIngredient{
				ReferenceIngredient: *result.Exact,
				Quantity:            original.Quantity,
				Unit:                original.Unit,
			})
			continue
		}

		pending := PendingIngredient{Original: original, Key: key, Similar: result.Similar}
		if len(result.Similar) > 0 {
			ingWith = append(ingWith, pending)
		} else {
			ingWithout = append(ingWithout, pending)
		}
	}
	state.IngredientsToValidate = append(ingWith, ingWithout...)

	var tagWith, tagWithout []PendingTag
	for _, key := range tagOrder {
		original := state.UniqueTags[key]
		result := match.Search(refTags, original, func(t common.ReferenceTag) string {
			return t.Name
		}, match.LevelModerate)

		if result.Exact != nil {
			state.TagMappings[key] = *result.Exact
			state.ExactMatchTags = append(state.ExactMatchTags, *result.Exact)
			continue
		}

		pending := PendingTag{Name: original, Key: key, Similar: result.Similar}
		if len(result.Similar) > 0 {
			tagWith = append(tagWith, pending)
		} else {
			tagWithout = append(tagWithout, pending)
		}
	}
	state.TagsToValidate = append(tagWith, tagWithout...)

	common.LogInfo("批次驗證已初始化",
		zap.String("batch_id", state.ID),
		zap.Int("unique_ingredients", len(state.UniqueIngredients)),
		zap.Int("unique_tags", len(state.UniqueTags)),
		zap.Int("pending_ingredients", len(state.IngredientsToValidate)),
		zap.Int("pending_tags", len(state.TagsToValidate)),
	)

	return state
}

// AddIngredientMapping 以正規化原始名稱為鍵，冪等地寫入食材對應
// 不從 IngredientsToValidate 移除項目，那份清單是固定快照
func (s *BatchState) AddIngredientMapping(originalName string, resolved common.ReferenceIngredient) {
	s.IngredientMappings[IngredientKey(originalName)] = resolved
}

// AddTagMapping 以正規化原始名稱為鍵，冪等地寫入標籤對應
func (s *BatchState) AddTagMapping(originalName string, resolved common.ReferenceTag) {
	s.TagMappings[TagKey(originalName)] = resolved
}

// ApplyMappingsToRecipes 把對應表套回整批食譜
// 沒有對應的品項以警告略過，不會失敗：這就是使用者跳過單一品項的路徑
// 對同一組輸入重複執行會得到完全相同的輸出
func ApplyMappingsToRecipes(recipes []common.ConvertedRecipe, state *BatchState) []common.ValidatedRecipe {
	out := make([]common.ValidatedRecipe, 0, len(recipes))
	for _, recipe := range recipes {
		validated := common.ValidatedRecipe{
			Title:          recipe.Title,
			Description:    recipe.Description,
			Ingredients:    []common.ValidatedIngredient{},
			Nutrition:      recipe.Nutrition,
			Steps:          recipe.Steps,
			ImageURL:       recipe.ImageURL,
			SourceURL:      recipe.SourceURL,
			SourceProvider: recipe.SourceProvider,
		}

		for _, ing := range recipe.Ingredients {
			resolved, ok := state.IngredientMappings[IngredientKey(ing.Name)]
			if !ok {
				common.LogWarn("食材沒有對應，略過",
					zap.String("recipe", recipe.Title),
					zap.String("ingredient", ing.Name),
				)
				continue
			}
			validated.Ingredients = append(validated.Ingredients, common.ValidatedIngredient{
				ReferenceIngredient: resolved,
				Quantity:            ing.Quantity,
				Unit:                ing.Unit,
			})
		}

		for _, tag := range recipe.Tags {
			resolved, ok := state.TagMappings[TagKey(tag)]
			if !ok {
				common.LogWarn("標籤沒有對應，略過",
					zap.String("recipe", recipe.Title),
					zap.String("tag", tag),
				)
				continue
			}
			validated.Tags = append(validated.Tags, resolved)
		}

		out = append(out, validated)
	}
	return out
}

// GetProgress 取得驗證進度，純投影不改動狀態
func (s *BatchState) GetProgress() Progress {
	return Progress{
		TotalIngredients:     len(s.UniqueIngredients),
		ValidatedIngredients: len(s.IngredientMappings),
		TotalTags:            len(s.UniqueTags),
		ValidatedTags:        len(s.TagMappings),
		RemainingIngredients: len(s.UniqueIngredients) - len(s.IngredientMappings),
		RemainingTags:        len(s.UniqueTags) - len(s.TagMappings),
	}
}
