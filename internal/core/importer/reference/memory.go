package reference

import (
	"context"
	"sync"

	"recipe-importer/internal/core/importer/match"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryRepository 記憶體內的參考資料庫
// API 層與測試用的實作，正式儲存端由外部應用注入
type MemoryRepository struct {
	mu          sync.RWMutex
	ingredients []common.ReferenceIngredient
	tags        []common.ReferenceTag
	persisted   []common.ValidatedRecipe
}

// NewMemoryRepository 創建記憶體參考資料庫
func NewMemoryRepository(ingredients []common.ReferenceIngredient, tags []common.ReferenceTag) *MemoryRepository {
	return &MemoryRepository{
		ingredients: ingredients,
		tags:        tags,
	}
}

// ListIngredients 取得全部參考食材
func (r *MemoryRepository) ListIngredients(ctx context.Context) ([]common.ReferenceIngredient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.ReferenceIngredient, len(r.ingredients))
	copy(out, r.ingredients)
	return out, nil
}

// ListTags 取得全部參考標籤
func (r *MemoryRepository) ListTags(ctx context.Context) ([]common.ReferenceTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.ReferenceTag, len(r.tags))
	copy(out, r.tags)
	return out, nil
}

// FindSimilarIngredients 相似食材查詢，食材用寬鬆等級並去除括號註記
func (r *MemoryRepository) FindSimilarIngredients(ctx context.Context, name string) ([]common.ReferenceIngredient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := match.Search(r.ingredients, match.CleanName(name), func(i common.ReferenceIngredient) string {
		return i.Name
	}, match.LevelPermissive)
	if result.Exact != nil {
		return []common.ReferenceIngredient{*result.Exact}, nil
	}
	return result.Similar, nil
}

// FindSimilarTags 相似標籤查詢，標籤用中等等級
func (r *MemoryRepository) FindSimilarTags(ctx context.Context, name string) ([]common.ReferenceTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := match.Search(r.tags, name, func(t common.ReferenceTag) string {
		return t.Name
	}, match.LevelModerate)
	if result.Exact != nil {
		return []common.ReferenceTag{*result.Exact}, nil
	}
	return result.Similar, nil
}

// Persist 寫入驗證完成的食譜
func (r *MemoryRepository) Persist(ctx context.Context, recipes []common.ValidatedRecipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persisted = append(r.persisted, recipes...)
	common.LogInfo("食譜已寫入參考資料庫",
		zap.Int("count", len(recipes)),
	)
	return nil
}

// Persisted 取得已寫入的食譜（測試用）
func (r *MemoryRepository) Persisted() []common.ValidatedRecipe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.ValidatedRecipe, len(r.persisted))
	copy(out, r.persisted)
	return out
}
