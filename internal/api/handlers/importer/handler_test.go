package importer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipe-importer/internal/core/importer/reference"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(repo reference.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo)
	router := gin.New()
	router.POST("/sessions", h.HandleCreateSession)
	router.POST("/sessions/:id/mappings", h.HandleAddMapping)
	router.GET("/sessions/:id/progress", h.HandleGetProgress)
	router.POST("/sessions/:id/commit", h.HandleCommitPhase)
	router.GET("/reference/similar", h.HandleFindSimilar)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSessionLifecycle(t *testing.T) {
	repo := reference.NewMemoryRepository(
		[]common.ReferenceIngredient{{ID: "ing-1", Name: "Flour"}},
		nil,
	)
	router := setupRouter(repo)

	rec := postJSON(t, router, "/sessions", CreateSessionRequest{
		Recipes: []common.ConvertedRecipe{
			{
				Title: "Gratin",
				Ingredients: []common.RecipeIngredient{
					{Name: "flour", Quantity: "200", Unit: "g"},
					{Name: "courgette"},
				},
				Tags: []string{"Halloween"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeSession(t, rec)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "tags", created.Phase)
	assert.Equal(t, 1, created.Progress.RemainingIngredients)
	assert.Equal(t, 1, created.Progress.RemainingTags)
	require.NotNil(t, created.Pending)

	base := "/sessions/" + created.SessionID

	// Tag phase: skip the only pending tag by committing without a mapping
	rec = postJSON(t, router, base+"/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ingredients", decodeSession(t, rec).Phase)

	// Ingredient phase: resolve the pending item
	rec = postJSON(t, router, base+"/mappings", MappingRequest{
		Type:         "ingredient",
		OriginalName: "courgette",
		Ingredient:   &common.ReferenceIngredient{ID: "ing-2", Name: "Courgette"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeSession(t, rec).Progress.RemainingIngredients)

	rec = postJSON(t, router, base+"/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	final := decodeSession(t, rec)
	assert.Equal(t, "complete", final.Phase)
	assert.Equal(t, 1, final.ImportedCount)

	require.Len(t, repo.Persisted(), 1)

	// Progress stays queryable after the terminal state
	req := httptest.NewRequest(http.MethodGet, base+"/progress", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "complete", decodeSession(t, getRec).Phase)
}

func TestSessionSkipAllEndsInError(t *testing.T) {
	repo := reference.NewMemoryRepository(nil, nil)
	router := setupRouter(repo)

	rec := postJSON(t, router, "/sessions", CreateSessionRequest{
		Recipes: []common.ConvertedRecipe{
			{Title: "Mystère", Ingredients: []common.RecipeIngredient{{Name: "xanthan gum"}}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeSession(t, rec)
	assert.Equal(t, "ingredients", created.Phase)

	rec = postJSON(t, router, "/sessions/"+created.SessionID+"/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	final := decodeSession(t, rec)
	assert.Equal(t, "error", final.Phase)
	assert.NotEmpty(t, final.Error)
	assert.Equal(t, common.ErrCodeNoValidRecipes, final.ErrorCode)
}

func TestSessionValidation(t *testing.T) {
	router := setupRouter(reference.NewMemoryRepository(nil, nil))

	rec := postJSON(t, router, "/sessions", CreateSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/sessions/nope/mappings", MappingRequest{
		Type:         "ingredient",
		OriginalName: "flour",
		Ingredient:   &common.ReferenceIngredient{ID: "i", Name: "Flour"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/sessions/nope/progress", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestFindSimilar(t *testing.T) {
	repo := reference.NewMemoryRepository(
		[]common.ReferenceIngredient{{ID: "ing-1", Name: "Tomato"}},
		[]common.ReferenceTag{{ID: "tag-1", Name: "Vegetarian"}},
	)
	router := setupRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/reference/similar?type=ingredient&name=tomatoes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Ingredients []common.ReferenceIngredient `json:"ingredients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Ingredients)
	assert.Equal(t, "ing-1", resp.Ingredients[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/reference/similar?type=plate&name=x", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/reference/similar?type=tag", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMappingPhaseGuard(t *testing.T) {
	router := setupRouter(reference.NewMemoryRepository(nil, nil))

	rec := postJSON(t, router, "/sessions", CreateSessionRequest{
		Recipes: []common.ConvertedRecipe{
			{Title: "A", Ingredients: []common.RecipeIngredient{{Name: "flour"}}, Tags: []string{"Quick"}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeSession(t, rec)
	require.Equal(t, "tags", created.Phase)

	// Ingredient mappings are rejected while the tag phase is active
	rec = postJSON(t, router, "/sessions/"+created.SessionID+"/mappings", MappingRequest{
		Type:         "ingredient",
		OriginalName: "flour",
		Ingredient:   &common.ReferenceIngredient{ID: "i", Name: "Flour"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
