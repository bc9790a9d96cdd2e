package workflow

import (
	"context"
	"testing"

	"recipe-importer/internal/core/importer/reference"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo() *reference.MemoryRepository {
	return reference.NewMemoryRepository(
		[]common.ReferenceIngredient{
			{ID: "ing-1", Name: "Flour"},
			{ID: "ing-2", Name: "Tomato"},
		},
		[]common.ReferenceTag{
			{ID: "tag-1", Name: "Vegetarian"},
		},
	)
}

func TestWorkflowFullRun(t *testing.T) {
	repo := newRepo()
	w := New(repo)
	ctx := context.Background()

	recipes := []common.ConvertedRecipe{
		{
			Title: "Gratin",
			Ingredients: []common.RecipeIngredient{
				{Name: "flour", Quantity: "200", Unit: "g"},
				{Name: "tomatoes"},
			},
			Tags: []string{"Halloween"},
		},
	}

	require.NoError(t, w.Start(ctx, recipes))
	// Tags always come before ingredients
	assert.Equal(t, PhaseTags, w.Phase())

	// Mapping an ingredient before its phase is rejected
	require.Error(t, w.AddIngredientMapping("tomatoes", common.ReferenceIngredient{ID: "ing-2", Name: "Tomato"}))

	require.NoError(t, w.AddTagMapping("Halloween", common.ReferenceTag{ID: "tag-9", Name: "Fête"}))
	require.NoError(t, w.CompleteTags(ctx))
	assert.Equal(t, PhaseIngredients, w.Phase())

	require.NoError(t, w.AddIngredientMapping("tomatoes", common.ReferenceIngredient{ID: "ing-2", Name: "Tomato"}))
	require.NoError(t, w.CompleteIngredients(ctx))

	assert.Equal(t, PhaseComplete, w.Phase())
	assert.Equal(t, 1, w.ImportedCount())

	persisted := repo.Persisted()
	require.Len(t, persisted, 1)
	assert.Equal(t, "Gratin", persisted[0].Title)
	require.Len(t, persisted[0].Ingredients, 2)
	require.Len(t, persisted[0].Tags, 1)
	assert.Equal(t, "tag-9", persisted[0].Tags[0].ID)
}

func TestWorkflowSkipsEmptyPhases(t *testing.T) {
	repo := newRepo()
	w := New(repo)

	// Everything matches exactly: no validation phases, straight to complete
	recipes := []common.ConvertedRecipe{
		{
			Title:       "Simple",
			Ingredients: []common.RecipeIngredient{{Name: "Flour"}},
			Tags:        []string{"Vegetarian"},
		},
	}

	require.NoError(t, w.Start(context.Background(), recipes))
	assert.Equal(t, PhaseComplete, w.Phase())
	assert.Equal(t, 1, w.ImportedCount())
}

func TestWorkflowTagsOnlyThenImport(t *testing.T) {
	repo := newRepo()
	w := New(repo)
	ctx := context.Background()

	recipes := []common.ConvertedRecipe{
		{
			Title:       "Soupe",
			Ingredients: []common.RecipeIngredient{{Name: "Flour"}},
			Tags:        []string{"Halloween"},
		},
	}

	require.NoError(t, w.Start(ctx, recipes))
	assert.Equal(t, PhaseTags, w.Phase())

	// No pending ingredients: completing tags runs the import directly
	require.NoError(t, w.CompleteTags(ctx))
	assert.Equal(t, PhaseComplete, w.Phase())
}

func TestWorkflowSkipAllIngredientsFails(t *testing.T) {
	repo := newRepo()
	w := New(repo)
	ctx := context.Background()

	recipes := []common.ConvertedRecipe{
		{
			Title:       "Mystère",
			Ingredients: []common.RecipeIngredient{{Name: "xanthan gum"}},
		},
	}

	require.NoError(t, w.Start(ctx, recipes))
	assert.Equal(t, PhaseIngredients, w.Phase())

	// Skipping every ingredient leaves nothing to import
	err := w.CompleteIngredients(ctx)
	require.ErrorIs(t, err, common.ErrNoValidRecipes)
	assert.Equal(t, PhaseError, w.Phase())
	assert.NotEmpty(t, w.ErrorMessage())

	// Callers classify the terminal error via errors.Is
	require.ErrorIs(t, w.Err(), common.ErrNoValidRecipes)
	assert.Empty(t, repo.Persisted())
}

func TestWorkflowExcludesEmptyRecipes(t *testing.T) {
	repo := newRepo()
	w := New(repo)
	ctx := context.Background()

	recipes := []common.ConvertedRecipe{
		{
			Title:       "Gardée",
			Ingredients: []common.RecipeIngredient{{Name: "Flour"}},
		},
		{
			Title:       "Vidée",
			Ingredients: []common.RecipeIngredient{{Name: "xanthan gum"}},
		},
	}

	require.NoError(t, w.Start(ctx, recipes))
	assert.Equal(t, PhaseIngredients, w.Phase())

	// Leave "xanthan gum" unmapped: its recipe drops out, the other survives
	require.NoError(t, w.CompleteIngredients(ctx))
	assert.Equal(t, PhaseComplete, w.Phase())
	assert.Equal(t, 1, w.ImportedCount())

	persisted := repo.Persisted()
	require.Len(t, persisted, 1)
	assert.Equal(t, "Gardée", persisted[0].Title)
}

func TestWorkflowStartIsNotReentrant(t *testing.T) {
	w := New(newRepo())
	recipes := []common.ConvertedRecipe{
		{Title: "A", Ingredients: []common.RecipeIngredient{{Name: "xanthan gum"}}},
	}

	require.NoError(t, w.Start(context.Background(), recipes))
	require.Error(t, w.Start(context.Background(), recipes))
}
