package importer

import (
	"errors"
	"net/http"
	"sync"

	"recipe-importer/internal/core/importer/reference"
	"recipe-importer/internal/core/importer/workflow"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// session 單一匯入批次的會話，互斥鎖保護流程狀態機
type session struct {
	mu       sync.Mutex
	workflow *workflow.Workflow
}

// Handler 匯入會話處理程序
type Handler struct {
	repo     reference.Repository
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewHandler 創建匯入會話處理程序
func NewHandler(repo reference.Repository) *Handler {
	return &Handler{
		repo:     repo,
		sessions: make(map[string]*session),
	}
}

func (h *Handler) getSession(id string) (*session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// CreateSessionRequest 建立匯入會話請求
type CreateSessionRequest struct {
	Recipes []common.ConvertedRecipe `json:"recipes" binding:"required"`
}

// sessionResponse 會話當前狀態的回應
type sessionResponse struct {
	SessionID     string             `json:"session_id"`
	Phase         string             `json:"phase"`
	Progress      validationProgress `json:"progress"`
	Pending       *pendingPayload    `json:"pending,omitempty"`
	ImportedCount int                `json:"imported_count,omitempty"`
	Error         string             `json:"error,omitempty"`
	ErrorCode     string             `json:"error_code,omitempty"`
}

type validationProgress struct {
	TotalIngredients     int `json:"total_ingredients"`
	ValidatedIngredients int `json:"validated_ingredients"`
	TotalTags            int `json:"total_tags"`
	ValidatedTags        int `json:"validated_tags"`
	RemainingIngredients int `json:"remaining_ingredients"`
	RemainingTags        int `json:"remaining_tags"`
}

// pendingPayload 目前階段的待驗證清單
type pendingPayload struct {
	Ingredients interface{} `json:"ingredients,omitempty"`
	Tags        interface{} `json:"tags,omitempty"`
}

func buildResponse(s *session) sessionResponse {
	w := s.workflow
	state := w.State()
	resp := sessionResponse{
		SessionID: state.ID,
		Phase:     string(w.Phase()),
	}
	p := state.GetProgress()
	resp.Progress = validationProgress{
		TotalIngredients:     p.TotalIngredients,
		ValidatedIngredients: p.ValidatedIngredients,
		TotalTags:            p.TotalTags,
		ValidatedTags:        p.ValidatedTags,
		RemainingIngredients: p.RemainingIngredients,
		RemainingTags:        p.RemainingTags,
	}

	switch w.Phase() {
	case workflow.PhaseTags:
		resp.Pending = &pendingPayload{Tags: state.TagsToValidate}
	case workflow.PhaseIngredients:
		resp.Pending = &pendingPayload{Ingredients: state.IngredientsToValidate}
	case workflow.PhaseComplete:
		resp.ImportedCount = w.ImportedCount()
	case workflow.PhaseError:
		resp.Error = w.ErrorMessage()
		if errors.Is(w.Err(), common.ErrNoValidRecipes) {
			resp.ErrorCode = common.ErrCodeNoValidRecipes
		} else {
			resp.ErrorCode = common.ErrCodeInternalError
		}
	}
	return resp
}

// HandleCreateSession 建立匯入會話並初始化批次驗證
func (h *Handler) HandleCreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}
	if len(req.Recipes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipes must not be empty", "code": common.ErrCodeInvalidRequest})
		return
	}

	s := &session{workflow: workflow.New(h.repo)}
	if err := s.workflow.Start(c.Request.Context(), req.Recipes); err != nil {
		// 全部食譜都無法匯入時會話仍然建立，終態 error 留給進度查詢
		if !errors.Is(err, common.ErrNoValidRecipes) {
			common.LogError("匯入會話初始化失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initialize import session", "code": common.ErrCodeInternalError})
			return
		}
	}

	id := s.workflow.State().ID
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	common.LogInfo("匯入會話已建立",
		zap.String("session_id", id),
		zap.Int("recipe_count", len(req.Recipes)),
		zap.String("phase", string(s.workflow.Phase())))

	c.JSON(http.StatusCreated, buildResponse(s))
}

// MappingRequest 一筆人工驗證決定
// type 為 ingredient 或 tag，resolved 為空表示略過該品項
type MappingRequest struct {
	Type         string                      `json:"type" binding:"required"`
	OriginalName string                      `json:"original_name" binding:"required"`
	Ingredient   *common.ReferenceIngredient `json:"ingredient,omitempty"`
	Tag          *common.ReferenceTag        `json:"tag,omitempty"`
}

// HandleAddMapping 寫入一筆對應，同名重送以最後一筆為準
func (h *Handler) HandleAddMapping(c *gin.Context) {
	s, ok := h.getSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "code": common.ErrCodeNotFound})
		return
	}

	var req MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch req.Type {
	case "ingredient":
		if req.Ingredient == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ingredient mapping requires an ingredient", "code": common.ErrCodeInvalidRequest})
			return
		}
		err = s.workflow.AddIngredientMapping(req.OriginalName, *req.Ingredient)
	case "tag":
		if req.Tag == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tag mapping requires a tag", "code": common.ErrCodeInvalidRequest})
			return
		}
		err = s.workflow.AddTagMapping(req.OriginalName, *req.Tag)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be ingredient or tag", "code": common.ErrCodeInvalidRequest})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": common.ErrCodeConflict})
		return
	}

	c.JSON(http.StatusOK, buildResponse(s))
}

// HandleFindSimilar 單一品項的相似查詢，給批次之外的互動式驗證用
func (h *Handler) HandleFindSimilar(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required", "code": common.ErrCodeInvalidRequest})
		return
	}

	switch c.Query("type") {
	case "ingredient":
		found, err := h.repo.FindSimilarIngredients(c.Request.Context(), name)
		if err != nil {
			common.LogError("相似食材查詢失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "similarity lookup failed", "code": common.ErrCodeInternalError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ingredients": found})
	case "tag":
		found, err := h.repo.FindSimilarTags(c.Request.Context(), name)
		if err != nil {
			common.LogError("相似標籤查詢失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "similarity lookup failed", "code": common.ErrCodeInternalError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tags": found})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be ingredient or tag", "code": common.ErrCodeInvalidRequest})
	}
}

// HandleGetProgress 查詢會話目前階段與驗證進度
func (h *Handler) HandleGetProgress(c *gin.Context) {
	s, ok := h.getSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "code": common.ErrCodeNotFound})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, buildResponse(s))
}

// HandleCommitPhase 結束目前驗證階段並推進狀態機
// 標籤階段結束進入食材階段，食材階段結束執行匯入
func (h *Handler) HandleCommitPhase(c *gin.Context) {
	s, ok := h.getSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "code": common.ErrCodeNotFound})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch s.workflow.Phase() {
	case workflow.PhaseTags:
		err = s.workflow.CompleteTags(c.Request.Context())
	case workflow.PhaseIngredients:
		err = s.workflow.CompleteIngredients(c.Request.Context())
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "session is not in a validation phase", "code": common.ErrCodeConflict})
		return
	}
	if err != nil && !errors.Is(err, common.ErrNoValidRecipes) {
		common.LogError("匯入階段推進失敗",
			zap.String("session_id", s.workflow.State().ID),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, buildResponse(s))
}
