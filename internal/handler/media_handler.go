package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// MediaHandler handles question media uploads.
type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload?kind=image|audio
// Stores a question image or audio prompt and returns its URL.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	kind := service.MediaKind(c.DefaultQuery("kind", string(service.MediaImage)))
	if kind != service.MediaImage && kind != service.MediaAudio {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"kind": "kind must be image or audio",
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, err := h.mediaService.SaveUpload(c.Request.Context(), kind, file, header)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url})
}
