package reference

import (
	"context"

	"recipe-importer/internal/pkg/common"
)

// Repository 參考資料庫協作端
// 核心只消費這組讀寫 API，儲存機制由外部應用提供
type Repository interface {
	// ListIngredients 取得全部參考食材的唯讀快照
	ListIngredients(ctx context.Context) ([]common.ReferenceIngredient, error)

	// ListTags 取得全部參考標籤的唯讀快照
	ListTags(ctx context.Context) ([]common.ReferenceTag, error)

	// FindSimilarIngredients 單品項互動驗證用的相似食材查詢
	FindSimilarIngredients(ctx context.Context, name string) ([]common.ReferenceIngredient, error)

	// FindSimilarTags 單品項互動驗證用的相似標籤查詢
	FindSimilarTags(ctx context.Context, name string) ([]common.ReferenceTag, error)

	// Persist 寫入驗證完成的食譜
	Persist(ctx context.Context, recipes []common.ValidatedRecipe) error
}
