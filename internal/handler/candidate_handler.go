package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CandidateHandler handles admin-facing candidate management.
type CandidateHandler struct {
	candidateService *service.CandidateService
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(candidateService *service.CandidateService) *CandidateHandler {
	return &CandidateHandler{candidateService: candidateService}
}

// ListCandidates godoc
// GET /api/v1/admin/candidates?search=&completed=&page=&per_page=
func (h *CandidateHandler) ListCandidates(c *gin.Context) {
	f, ok := candidateFilter(c)
	if !ok {
		return
	}

	candidates, pagination, err := h.candidateService.ListCandidates(c.Request.Context(), f)
	if err != nil {
		failWith(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"candidates": candidates}, pagination)
}

// CreateCandidate godoc
// POST /api/v1/admin/candidates
func (h *CandidateHandler) CreateCandidate(c *gin.Context) {
	var req model.CreateCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateService.Create(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"candidate": candidate})
}

// BulkCreateCandidates godoc
// POST /api/v1/admin/candidates/bulk
// Registers many candidates; rejected rows are listed in errors.
func (h *CandidateHandler) BulkCreateCandidates(c *gin.Context) {
	var req model.BulkCreateCandidatesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.candidateService.BulkCreate(c.Request.Context(), req.Candidates)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ImportCandidates godoc
// POST /api/v1/admin/candidates/import
// Multipart xlsx upload; column A is the name, column B the exam number.
func (h *CandidateHandler) ImportCandidates(c *gin.Context) {
	file, ok := spreadsheetUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.candidateService.ImportSpreadsheet(c.Request.Context(), file)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ExportCandidates godoc
// GET /api/v1/admin/candidates/export
// Downloads the filtered candidate list as xlsx.
func (h *CandidateHandler) ExportCandidates(c *gin.Context) {
	f, ok := candidateFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.candidateService.ExportSpreadsheet(c.Request.Context(), f, &buf); err != nil {
		failWith(c, err)
		return
	}

	name := fmt.Sprintf("candidates-%s.xlsx", time.Now().Format("20060102-1504"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ResetAttempts godoc
// POST /api/v1/admin/candidates/reset
// Gives the listed candidates a fresh attempt and signs them out.
func (h *CandidateHandler) ResetAttempts(c *gin.Context) {
	var req model.ResetAttemptsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	n, err := h.candidateService.ResetAttempts(c.Request.Context(), req.CandidateIDs)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": n})
}

// ResetSession godoc
// POST /api/v1/admin/candidates/:id/reset-session
// Clears the candidate's single-device session so they can log in again.
func (h *CandidateHandler) ResetSession(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.candidateService.ResetSession(c.Request.Context(), id); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Session reset successfully"})
}

// DeleteCandidate godoc
// DELETE /api/v1/admin/candidates/:id
func (h *CandidateHandler) DeleteCandidate(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.candidateService.Delete(c.Request.Context(), id); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func candidateFilter(c *gin.Context) (model.CandidateFilter, bool) {
	page, perPage := pageQuery(c)
	f := model.CandidateFilter{
		Search:  strings.TrimSpace(c.Query("search")),
		Page:    page,
		PerPage: perPage,
	}
	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"completed": "completed must be true or false",
			})
			return f, false
		}
		f.Completed = &completed
	}
	return f, true
}

// spreadsheetUpload opens the multipart "file" field, which must be an xlsx.
func spreadsheetUpload(c *gin.Context) (multipart.File, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return nil, false
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		file.Close()
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return nil, false
	}
	return file, true
}
