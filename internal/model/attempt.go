package model

import (
	"time"

	"github.com/google/uuid"
)

// TestAttempt is one run of the exam by a candidate.
type TestAttempt struct {
	ID              uuid.UUID  `json:"id"`
	CandidateID     int        `json:"candidate_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
	IsAbandoned     bool       `json:"is_abandoned"`
	AbandonedReason *string    `json:"abandoned_reason,omitempty"`
}

// TestQuestion binds a bank question to its position in an attempt.
type TestQuestion struct {
	ID             int       `json:"id"`
	AttemptID      uuid.UUID `json:"attempt_id"`
	QuestionID     int       `json:"question_id"`
	QuestionNumber int       `json:"question_number"`
	Part           int       `json:"part"`
}

// StartAttemptResponse is returned when a candidate starts a test.
type StartAttemptResponse struct {
	AttemptID uuid.UUID         `json:"test_attempt_id"`
	Questions []AttemptQuestion `json:"questions"`
	StreamURL string            `json:"stream_url"`
}

// AttemptQuestion is a question as presented inside an attempt.
type AttemptQuestion struct {
	QuestionID      int     `json:"question_id"`
	QuestionNumber  int     `json:"question_number"`
	Part            int     `json:"part"`
	QuestionSetID   *string `json:"question_set_id,omitempty"`
	QuestionOrder   int     `json:"question_order"`
	QuestionText    string  `json:"question_text"`
	InfoText        *string `json:"info_text,omitempty"`
	InfoImageURL    *string `json:"info_image_url,omitempty"`
	InfoAudioURL    *string `json:"info_audio_url,omitempty"`
	AudioURL        *string `json:"audio_url,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	PreparationTime int     `json:"preparation_time"`
	SpeakingTime    int     `json:"speaking_time"`
}

// CompleteAttemptRequest closes an attempt from the client side.
type CompleteAttemptRequest struct {
	IsAbandoned bool   `json:"is_abandoned"`
	Reason      string `json:"reason" binding:"omitempty,max=200"`
}

// AttemptEvent is a phase change logged for auditing.
type AttemptEvent struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	QuestionNumber int       `json:"question_number"`
	Phase          string    `json:"phase"`
	CreatedAt      time.Time `json:"created_at"`
}

// GradingAttempt is a completed attempt with its recordings, for graders.
type GradingAttempt struct {
	TestAttempt
	CandidateName string      `json:"candidate_name"`
	ExamNumber    string      `json:"exam_number"`
	Recordings    []Recording `json:"recordings"`
}
