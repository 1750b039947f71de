package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certivox/certivox-backend/internal/middleware"
	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/response"
	"github.com/certivox/certivox-backend/internal/service"
	"github.com/certivox/certivox-backend/internal/validator"
)

// CertificationHandler exposes the voice certification session engine.
type CertificationHandler struct {
	certService        *service.CertificationService
	eligibilityService *service.EligibilityService
}

// NewCertificationHandler creates a new CertificationHandler.
func NewCertificationHandler(certService *service.CertificationService, eligibilityService *service.EligibilityService) *CertificationHandler {
	return &CertificationHandler{
		certService:        certService,
		eligibilityService: eligibilityService,
	}
}

// CheckEligibility godoc
// GET /api/v1/trainee/modules/:module_id/certification/eligibility
// Returns the eligibility breakdown without side effects.
func (h *CertificationHandler) CheckEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.eligibilityService.Evaluate(c.Request.Context(), moduleID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"eligibility": result})
}

// StartSession godoc
// POST /api/v1/trainee/modules/:module_id/certification/start
// Starts (or resumes) a certification session and returns the first question.
func (h *CertificationHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.certService.Start(c.Request.Context(), claims.UserID, moduleID)
	if err != nil {
		var ineligible *service.IneligibleError
		switch {
		case errors.As(err, &ineligible):
			response.FailWithData(c, http.StatusForbidden, response.ErrIneligible, gin.H{
				"eligibility": ineligible.Result,
			})
		case errors.Is(err, service.ErrSessionTerminal):
			response.Fail(c, http.StatusConflict, response.ErrSessionTerminal)
		case errors.Is(err, service.ErrModuleNotPublished):
			response.Fail(c, http.StatusForbidden, response.ErrModuleNotPublished)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// SubmitResponse godoc
// POST /api/v1/trainee/modules/:module_id/certification/respond
// Scores the answer to the current question and returns the next question or
// the final result. A transcription failure keeps the same question open.
func (h *CertificationHandler) SubmitResponse(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.certService.SubmitResponse(c.Request.Context(), claims.UserID, moduleID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveSession):
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		case errors.Is(err, service.ErrSessionTerminal):
			response.Fail(c, http.StatusConflict, response.ErrSessionTerminal)
		case errors.Is(err, service.ErrEmptyResponse):
			response.Fail(c, http.StatusBadRequest, response.ErrEmptyResponse)
		case errors.Is(err, service.ErrTranscription):
			response.Fail(c, http.StatusBadGateway, response.ErrTranscriptionFailed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// CompleteSession godoc
// POST /api/v1/trainee/modules/:module_id/certification/complete
// Finalizes the session. Idempotent: a terminal session returns its stored
// result unchanged.
func (h *CertificationHandler) CompleteSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.certService.Complete(c.Request.Context(), claims.UserID, moduleID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetSession godoc
// GET /api/v1/trainee/modules/:module_id/certification/session
// Returns the trainee's session state for a module.
func (h *CertificationHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.certService.GetSession(c.Request.Context(), claims.UserID, moduleID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetCertificate godoc
// GET /api/v1/trainee/modules/:module_id/certification/certificate
// Returns the certificate for a COMPLETED session only.
func (h *CertificationHandler) GetCertificate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	cert, err := h.certService.GetCertificate(c.Request.Context(), claims.UserID, moduleID)
	if err != nil {
		if errors.Is(err, service.ErrNotCertified) {
			response.Fail(c, http.StatusNotFound, response.ErrNotCertified)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cert})
}
