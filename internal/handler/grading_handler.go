package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// GradingHandler exposes finished attempts and their recordings to graders.
type GradingHandler struct {
	gradingService *service.GradingService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

// ListAttempts godoc
// GET /api/v1/admin/grading/attempts?page=&per_page=
func (h *GradingHandler) ListAttempts(c *gin.Context) {
	page, perPage := pageQuery(c)

	attempts, pagination, err := h.gradingService.ListAttempts(c.Request.Context(), page, perPage)
	if err != nil {
		failWith(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}

// GetAttempt godoc
// GET /api/v1/admin/grading/attempts/:attempt_id
func (h *GradingHandler) GetAttempt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.gradingService.GetAttempt(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetTimeline godoc
// GET /api/v1/admin/grading/attempts/:attempt_id/timeline
// Lists the phase changes the attempt went through.
func (h *GradingHandler) GetTimeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	events, err := h.gradingService.Timeline(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}
