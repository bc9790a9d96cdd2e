package workflow

import (
	"context"
	"fmt"

	"recipe-importer/internal/core/importer/reference"
	"recipe-importer/internal/core/importer/validation"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Phase 匯入流程階段
type Phase string

const (
	// PhaseInitializing 初始化批次驗證
	PhaseInitializing Phase = "initializing"
	// PhaseTags 標籤驗證中
	PhaseTags Phase = "tags"
	// PhaseIngredients 食材驗證中
	PhaseIngredients Phase = "ingredients"
	// PhaseImporting 套用對應並寫入
	PhaseImporting Phase = "importing"
	// PhaseComplete 匯入完成（終態）
	PhaseComplete Phase = "complete"
	// PhaseError 匯入失敗（終態）
	PhaseError Phase = "error"
)

// Workflow 匯入流程協調器
// 依固定順序走過驗證階段：initializing → tags → ingredients → importing，
// 兩個驗證階段只在有待驗證項目時進入，任何階段不會重入
type Workflow struct {
	repo          reference.Repository
	recipes       []common.ConvertedRecipe
	state         *validation.BatchState
	phase         Phase
	importedCount int
	errMessage    string
	err           error
}

// New 創建匯入流程
func New(repo reference.Repository) *Workflow {
	return &Workflow{
		repo:  repo,
		phase: PhaseInitializing,
	}
}

// Phase 取得目前階段
func (w *Workflow) Phase() Phase {
	return w.phase
}

// State 取得批次驗證會話，Start 之前為 nil
func (w *Workflow) State() *validation.BatchState {
	return w.state
}

// ImportedCount 取得已匯入筆數，僅在 complete 終態有意義
func (w *Workflow) ImportedCount() int {
	return w.importedCount
}

// ErrorMessage 取得使用者可讀的錯誤訊息，僅在 error 終態有意義
func (w *Workflow) ErrorMessage() string {
	return w.errMessage
}

// Err 取得導致 error 終態的原始錯誤，供呼叫端分類
func (w *Workflow) Err() error {
	return w.err
}

// Start 初始化批次驗證並轉入第一個有待驗證項目的階段
// 標籤與食材都沒有待驗證項目時直接進入 importing 並執行匯入
func (w *Workflow) Start(ctx context.Context, recipes []common.ConvertedRecipe) error {
	if w.phase != PhaseInitializing {
		return fmt.Errorf("workflow already started (phase %s)", w.phase)
	}

	refIngredients, err := w.repo.ListIngredients(ctx)
	if err != nil {
		return w.fail("無法讀取參考食材", err)
	}
	refTags, err := w.repo.ListTags(ctx)
	if err != nil {
		return w.fail("無法讀取參考標籤", err)
	}

	w.recipes = recipes
	w.state = validation.Initialize(recipes, refIngredients, refTags)

	switch {
	case len(w.state.TagsToValidate) > 0:
		w.phase = PhaseTags
	case len(w.state.IngredientsToValidate) > 0:
		w.phase = PhaseIngredients
	default:
		return w.runImport(ctx)
	}

	common.LogInfo("匯入流程已啟動",
		zap.String("batch_id", w.state.ID),
		zap.String("phase", string(w.phase)),
	)
	return nil
}

// AddTagMapping 在標籤驗證階段寫入一筆標籤對應
func (w *Workflow) AddTagMapping(originalName string, resolved common.ReferenceTag) error {
	if w.phase != PhaseTags {
		return fmt.Errorf("not in tags phase (phase %s)", w.phase)
	}
	w.state.AddTagMapping(originalName, resolved)
	return nil
}

// AddIngredientMapping 在食材驗證階段寫入一筆食材對應
func (w *Workflow) AddIngredientMapping(originalName string, resolved common.ReferenceIngredient) error {
	if w.phase != PhaseIngredients {
		return fmt.Errorf("not in ingredients phase (phase %s)", w.phase)
	}
	w.state.AddIngredientMapping(originalName, resolved)
	return nil
}

// CompleteTags 結束標籤驗證（已解決或明確跳過）
// 有待驗證食材時轉入 ingredients，否則直接匯入
func (w *Workflow) CompleteTags(ctx context.Context) error {
	if w.phase != PhaseTags {
		return fmt.Errorf("not in tags phase (phase %s)", w.phase)
	}
	if len(w.state.IngredientsToValidate) > 0 {
		w.phase = PhaseIngredients
		return nil
	}
	return w.runImport(ctx)
}

// CompleteIngredients 結束食材驗證並執行匯入
func (w *Workflow) CompleteIngredients(ctx context.Context) error {
	if w.phase != PhaseIngredients {
		return fmt.Errorf("not in ingredients phase (phase %s)", w.phase)
	}
	return w.runImport(ctx)
}

// runImport 套用對應表、過濾空食材的食譜並寫入儲存端
func (w *Workflow) runImport(ctx context.Context) error {
	w.phase = PhaseImporting

	validated := validation.ApplyMappingsToRecipes(w.recipes, w.state)

	// 對應後食材清單為空的食譜不進入匯入集合
	importable := make([]common.ValidatedRecipe, 0, len(validated))
	for _, recipe := range validated {
		if len(recipe.Ingredients) == 0 {
			common.LogWarn("食譜對應後沒有任何食材，排除",
				zap.String("recipe", recipe.Title),
			)
			continue
		}
		importable = append(importable, recipe)
	}

	if len(importable) == 0 {
		w.phase = PhaseError
		w.errMessage = "沒有可匯入的食譜：所有食材都在驗證時被略過"
		w.err = common.ErrNoValidRecipes
		return common.ErrNoValidRecipes
	}

	if err := w.repo.Persist(ctx, importable); err != nil {
		return w.fail("寫入儲存端失敗", err)
	}

	w.phase = PhaseComplete
	w.importedCount = len(importable)

	common.LogInfo("匯入完成",
		zap.String("batch_id", w.state.ID),
		zap.Int("imported", w.importedCount),
		zap.Int("excluded", len(validated)-len(importable)),
	)
	return nil
}

// fail 轉入 error 終態
func (w *Workflow) fail(message string, err error) error {
	w.phase = PhaseError
	w.errMessage = message
	w.err = err
	common.LogError(message, zap.Error(err))
	return fmt.Errorf("%s: %w", message, err)
}
