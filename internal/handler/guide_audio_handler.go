package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

type GuideAudioHandler struct {
	guideService *service.GuideAudioService
}

func NewGuideAudioHandler(guideService *service.GuideAudioService) *GuideAudioHandler {
	return &GuideAudioHandler{guideService: guideService}
}

// ListGuideAudio godoc
// GET /api/v1/admin/guide-audio
// Lists every cue with its effective URL and whether it is overridden.
func (h *GuideAudioHandler) ListGuideAudio(c *gin.Context) {
	entries, err := h.guideService.Entries(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"guide_audio": entries})
}

// SetGuideAudio godoc
// PUT /api/v1/admin/guide-audio/:key
func (h *GuideAudioHandler) SetGuideAudio(c *gin.Context) {
	var req model.UpsertGuideAudioRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	key := c.Param("key")
	if err := h.guideService.SetOverride(c.Request.Context(), key, req.URL); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"audio_key": key, "url": req.URL})
}

// UploadGuideAudio godoc
// POST /api/v1/admin/guide-audio/:key/upload
func (h *GuideAudioHandler) UploadGuideAudio(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	key := c.Param("key")
	url, err := h.guideService.UploadOverride(c.Request.Context(), key, file, header)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"audio_key": key, "url": url})
}

// ResetGuideAudio godoc
// DELETE /api/v1/admin/guide-audio/:key
// Drops the override so the cue falls back to its default track.
func (h *GuideAudioHandler) ResetGuideAudio(c *gin.Context) {
	if err := h.guideService.ResetOverride(c.Request.Context(), c.Param("key")); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
