package model

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus tracks whether a recording reached storage.
type UploadStatus string

const (
	UploadPending   UploadStatus = "PENDING"
	UploadCompleted UploadStatus = "COMPLETED"
	UploadFailed    UploadStatus = "FAILED"
)

// Recording is a candidate's spoken response to one question.
type Recording struct {
	ID             int          `json:"id"`
	AttemptID      uuid.UUID    `json:"attempt_id"`
	QuestionNumber int          `json:"question_number"`
	AudioURL       string       `json:"audio_url"`
	ObjectKey      string       `json:"-"`
	MimeType       string       `json:"mime_type"`
	FileSize       int64        `json:"file_size"`
	DurationMs     int64        `json:"duration_ms"`
	UploadStatus   UploadStatus `json:"upload_status"`
	CreatedAt      time.Time    `json:"created_at"`
}

// RecordingJob is queued in Redis and persisted by the recording worker.
type RecordingJob struct {
	AttemptID      string       `json:"attempt_id"`
	QuestionNumber int          `json:"question_number"`
	AudioURL       string       `json:"audio_url"`
	ObjectKey      string       `json:"object_key"`
	MimeType       string       `json:"mime_type"`
	FileSize       int64        `json:"file_size"`
	DurationMs     int64        `json:"duration_ms"`
	UploadStatus   UploadStatus `json:"upload_status"`
	Attempts       int          `json:"attempts"`
}
