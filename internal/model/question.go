package model

import "time"

// Question is one item in the question bank. Part 3 and Part 4 questions
// belong to a set of three sharing QuestionSetID.
type Question struct {
	ID              int       `json:"id"`
	Part            int       `json:"part"`
	QuestionSetID   *string   `json:"question_set_id,omitempty"`
	QuestionOrder   int       `json:"question_order"`
	QuestionText    string    `json:"question_text"`
	InfoText        *string   `json:"info_text,omitempty"`
	InfoImageURL    *string   `json:"info_image_url,omitempty"`
	InfoAudioURL    *string   `json:"info_audio_url,omitempty"`
	AudioURL        *string   `json:"audio_url,omitempty"`
	ImageURL        *string   `json:"image_url,omitempty"`
	PreparationTime int       `json:"preparation_time"`
	SpeakingTime    int       `json:"speaking_time"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// QuestionRequest creates or updates a Part 1, 2 or 5 question.
type QuestionRequest struct {
	Part            int     `json:"part" binding:"required,oneof=1 2 5"`
	QuestionText    string  `json:"question_text" binding:"required,min=1,max=4000"`
	AudioURL        *string `json:"audio_url" binding:"omitempty,max=500"`
	ImageURL        *string `json:"image_url" binding:"omitempty,max=500"`
	PreparationTime int     `json:"preparation_time" binding:"required,min=1,max=300"`
	SpeakingTime    int     `json:"speaking_time" binding:"required,min=1,max=300"`
}

// QuestionSetItem is one of the three questions of a Part 3 or Part 4 set.
type QuestionSetItem struct {
	QuestionText string  `json:"question_text" binding:"required,min=1,max=4000"`
	AudioURL     *string `json:"audio_url" binding:"omitempty,max=500"`
}

// QuestionSetRequest creates a Part 3 or Part 4 set. Shared information is
// stored on every question of the set.
type QuestionSetRequest struct {
	Part         int               `json:"part" binding:"required,oneof=3 4"`
	InfoText     *string           `json:"info_text" binding:"omitempty,max=8000"`
	InfoImageURL *string           `json:"info_image_url" binding:"omitempty,max=500"`
	InfoAudioURL *string           `json:"info_audio_url" binding:"omitempty,max=500"`
	Questions    []QuestionSetItem `json:"questions" binding:"required,len=3,dive"`
}

// UpdateQuestionRequest edits the text, media and timing of any question.
type UpdateQuestionRequest struct {
	QuestionText    string  `json:"question_text" binding:"required,min=1,max=4000"`
	InfoText        *string `json:"info_text" binding:"omitempty,max=8000"`
	InfoImageURL    *string `json:"info_image_url" binding:"omitempty,max=500"`
	InfoAudioURL    *string `json:"info_audio_url" binding:"omitempty,max=500"`
	AudioURL        *string `json:"audio_url" binding:"omitempty,max=500"`
	ImageURL        *string `json:"image_url" binding:"omitempty,max=500"`
	PreparationTime int     `json:"preparation_time" binding:"required,min=1,max=300"`
	SpeakingTime    int     `json:"speaking_time" binding:"required,min=1,max=300"`
	IsActive        *bool   `json:"is_active"`
}

// QuestionFilter narrows the question bank list.
type QuestionFilter struct {
	Part       int
	ActiveOnly bool
}
