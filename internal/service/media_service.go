package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/storage"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// MediaKind selects the allow-list and storage prefix of an upload.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var audioTypes = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
}

// baseMIME drops parameters such as "codecs=opus" from a content type.
func baseMIME(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// audioExt returns the file extension for an audio content type.
func audioExt(contentType string) (string, bool) {
	ext, ok := audioTypes[baseMIME(contentType)]
	return ext, ok
}

// MediaService stores question images and audio tracks.
type MediaService struct {
	cfg   *config.Config
	store storage.Provider
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config, store storage.Provider) *MediaService {
	return &MediaService{cfg: cfg, store: store}
}

// SaveUpload validates and stores an uploaded file under a UUID name.
// Returns the public URL of the stored object.
func (s *MediaService) SaveUpload(ctx context.Context, kind MediaKind, file multipart.File, header *multipart.FileHeader) (string, error) {
	allowed := imageTypes
	if kind == MediaAudio {
		allowed = audioTypes
	}

	contentType := baseMIME(header.Header.Get("Content-Type"))
	ext, ok := allowed[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(allowed), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	key := fmt.Sprintf("media/%s/%s%s", kind, uuid.New().String(), ext)
	url, err := s.store.Put(ctx, key, file, header.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("store media: %w", err)
	}
	return url, nil
}

func allowedTypes(m map[string]string) []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
