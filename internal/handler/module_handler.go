package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/certivox/certivox-backend/internal/middleware"
	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/response"
	"github.com/certivox/certivox-backend/internal/service"
	"github.com/certivox/certivox-backend/internal/validator"
)

// ModuleHandler handles the training module catalog and progress endpoints.
type ModuleHandler struct {
	moduleService *service.ModuleService
}

// NewModuleHandler creates a new ModuleHandler.
func NewModuleHandler(moduleService *service.ModuleService) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService}
}

// GetCatalog godoc
// GET /api/v1/trainee/modules
// Lists published modules with the trainee's completion overlay.
func (h *ModuleHandler) GetCatalog(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	catalog, err := h.moduleService.Catalog(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"modules": catalog})
}

// GetModule godoc
// GET /api/v1/trainee/modules/:module_id
// Returns a module with its subtopics and quizzes.
func (h *ModuleHandler) GetModule(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	module, subtopics, quizzes, err := h.moduleService.GetModule(c.Request.Context(), moduleID)
	if err != nil {
		if errors.Is(err, service.ErrModuleNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"module":    module,
		"subtopics": subtopics,
		"quizzes":   quizzes,
	})
}

// CompleteSubtopic godoc
// POST /api/v1/trainee/subtopics/:subtopic_id/complete
// Marks a subtopic as done for the trainee. Idempotent.
func (h *ModuleHandler) CompleteSubtopic(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	subtopicID, err := uuid.Parse(c.Param("subtopic_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.moduleService.CompleteSubtopic(c.Request.Context(), subtopicID, claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"completed": true})
}

// RecordQuizAttempt godoc
// POST /api/v1/trainee/quiz-attempts
// Records a quiz attempt; pass/fail is derived from the quiz's passing score.
func (h *ModuleHandler) RecordQuizAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.RecordQuizAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.moduleService.RecordQuizAttempt(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		if errors.Is(err, service.ErrModuleNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// CreateModule godoc
// POST /api/v1/admin/modules
// Creates a training module in DRAFT status.
func (h *ModuleHandler) CreateModule(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateModuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	module, err := h.moduleService.CreateModule(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"module": module})
}

// SetModuleStatus godoc
// PATCH /api/v1/admin/modules/:module_id/status
// Moves a module between DRAFT, PUBLISHED and ARCHIVED.
func (h *ModuleHandler) SetModuleStatus(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req struct {
		Status model.ModuleStatus `json:"status" binding:"required,oneof=DRAFT PUBLISHED ARCHIVED"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.moduleService.SetModuleStatus(c.Request.Context(), moduleID, req.Status); err != nil {
		if errors.Is(err, service.ErrModuleNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": req.Status})
}
