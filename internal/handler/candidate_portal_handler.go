package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

// CandidatePortalHandler handles candidate-facing endpoints around a test attempt.
type CandidatePortalHandler struct {
	candidateService *service.CandidateService
	attemptService   *service.AttemptService
	recordingService *service.RecordingService
	guideService     *service.GuideAudioService
}

// NewCandidatePortalHandler creates a new CandidatePortalHandler.
func NewCandidatePortalHandler(
	candidateService *service.CandidateService,
	attemptService *service.AttemptService,
	recordingService *service.RecordingService,
	guideService *service.GuideAudioService,
) *CandidatePortalHandler {
	return &CandidatePortalHandler{
		candidateService: candidateService,
		attemptService:   attemptService,
		recordingService: recordingService,
		guideService:     guideService,
	}
}

// GetProfile godoc
// GET /api/v1/candidate/me
func (h *CandidatePortalHandler) GetProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	candidate, err := h.candidateService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}

// GetRemainingAttempts godoc
// GET /api/v1/candidate/remaining-attempts
func (h *CandidatePortalHandler) GetRemainingAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	candidate, err := h.candidateService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"remaining_attempts": candidate.RemainingAttempts,
		"has_completed":      candidate.HasCompleted,
	})
}

// StartAttempt godoc
// POST /api/v1/candidate/attempts
// Picks the questions of a new test and consumes one attempt. The exam
// itself is driven over the returned stream URL.
func (h *CandidatePortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, err := h.attemptService.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// GetAttemptQuestions godoc
// GET /api/v1/candidate/attempts/:attempt_id/questions
// Returns the frozen question list of an attempt the candidate owns.
func (h *CandidatePortalHandler) GetAttemptQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.attemptService.Authorize(c.Request.Context(), claims.UserID, attemptID); err != nil {
		failWith(c, err)
		return
	}
	questions, err := h.attemptService.Questions(c.Request.Context(), attemptID)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SubmitRecording godoc
// POST /api/v1/candidate/attempts/:attempt_id/recordings
// Multipart upload (question_number, audio_file) for clients that record
// outside the exam stream.
func (h *CandidatePortalHandler) SubmitRecording(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questionNumber, err := strconv.Atoi(c.PostForm("question_number"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"question_number": "question_number must be a number",
		})
		return
	}

	file, header, err := c.Request.FormFile("audio_file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if err := h.recordingService.Submit(c.Request.Context(), claims.UserID, attemptID, questionNumber, file, header); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"question_number": questionNumber,
		"status":          "uploaded",
	})
}

// CompleteAttempt godoc
// POST /api/v1/candidate/attempts/:attempt_id/complete
// Closes the attempt from the client side. Repeated calls are no-ops.
func (h *CandidatePortalHandler) CompleteAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CompleteAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.CompleteForCandidate(c.Request.Context(), claims.UserID, attemptID, req); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"is_abandoned": req.IsAbandoned})
}

// GetGuideAudio godoc
// GET /api/v1/candidate/guide-audio
// Returns the effective guide audio URL for every cue.
func (h *CandidatePortalHandler) GetGuideAudio(c *gin.Context) {
	guides, err := h.guideService.Map(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"guide_audio": guides})
}
