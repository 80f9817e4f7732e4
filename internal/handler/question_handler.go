package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

// QuestionHandler handles question bank management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/admin/questions?part=&active=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var f model.QuestionFilter
	if raw := c.Query("part"); raw != "" {
		part, err := strconv.Atoi(raw)
		if err != nil || part < 1 || part > 5 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"part": "part must be between 1 and 5",
			})
			return
		}
		f.Part = part
	}
	f.ActiveOnly, _ = strconv.ParseBool(c.Query("active"))

	questions, err := h.questionService.List(c.Request.Context(), f)
	if err != nil {
		failWith(c, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetQuestion godoc
// GET /api/v1/admin/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	q, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// CreateQuestion godoc
// POST /api/v1/admin/questions
// Creates a standalone Part 1, 2 or 5 question.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Create(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// CreateQuestionSet godoc
// POST /api/v1/admin/questions/sets
// Creates the three questions of a Part 3 or Part 4 set.
func (h *QuestionHandler) CreateQuestionSet(c *gin.Context) {
	var req model.QuestionSetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.CreateSet(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"questions": questions})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Update(c.Request.Context(), id, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:id
// Soft-deletes the question; a set question retires its whole set.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	n, err := h.questionService.Deactivate(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	if n == 0 {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deactivated": n})
}

// GetCoverage godoc
// GET /api/v1/admin/questions/coverage
// Reports whether the active bank can build a full test.
func (h *QuestionHandler) GetCoverage(c *gin.Context) {
	coverage, err := h.questionService.Coverage(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"coverage": coverage})
}
