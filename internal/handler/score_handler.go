package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

// ScoreHandler handles score publishing and score reports.
type ScoreHandler struct {
	scoreService *service.ScoreService
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scoreService *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

// ListScores godoc
// GET /api/v1/admin/scores
func (h *ScoreHandler) ListScores(c *gin.Context) {
	scores, err := h.scoreService.List(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}

	response.Success(c, http.StatusOK, gin.H{"scores": scores})
}

// UploadScores godoc
// POST /api/v1/admin/scores
// Body: {"scores": [{"exam_number": "...", "score": 150}]}. The CEFR level
// is assigned from the score; failed rows are listed in errors.
func (h *ScoreHandler) UploadScores(c *gin.Context) {
	var req model.UploadScoresRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.scoreService.Upload(c.Request.Context(), req.Scores)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ImportScores godoc
// POST /api/v1/admin/scores/import
// Multipart xlsx upload; columns are name, exam number and score.
func (h *ScoreHandler) ImportScores(c *gin.Context) {
	file, ok := spreadsheetUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.scoreService.UploadSpreadsheet(c.Request.Context(), file)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetReport godoc
// GET /api/v1/admin/scores/:id/report
func (h *ScoreHandler) GetReport(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	report, err := h.scoreService.Report(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// DownloadReport godoc
// GET /api/v1/admin/scores/:id/pdf
func (h *ScoreHandler) DownloadReport(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	report, err := h.scoreService.WriteReportPDF(c.Request.Context(), id, &buf)
	if err != nil {
		failWith(c, err)
		return
	}

	name := fmt.Sprintf("score-report-%s.pdf", report.CandidateNumber)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
