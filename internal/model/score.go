package model

import "time"

// CEFRLevel is the Common European Framework band derived from a score.
type CEFRLevel string

const (
	CEFRC1     CEFRLevel = "C1"
	CEFRB2     CEFRLevel = "B2"
	CEFRB1Plus CEFRLevel = "B1_PLUS"
	CEFRB1     CEFRLevel = "B1"
	CEFRA2Plus CEFRLevel = "A2_PLUS"
	CEFRA2     CEFRLevel = "A2"
	CEFRA1     CEFRLevel = "A1"
	CEFRPreA1  CEFRLevel = "PRE_A1"
)

// MaxScore is the top of the 0-200 speaking scale.
const MaxScore = 200

// CEFRFor maps a 0-200 score to its CEFR level.
func CEFRFor(score int) CEFRLevel {
	switch {
	case score >= 180:
		return CEFRC1
	case score >= 160:
		return CEFRB2
	case score >= 140:
		return CEFRB1Plus
	case score >= 110:
		return CEFRB1
	case score >= 80:
		return CEFRA2Plus
	case score >= 60:
		return CEFRA2
	case score >= 40:
		return CEFRA1
	default:
		return CEFRPreA1
	}
}

// Description returns the can-do statement printed on score reports.
func (l CEFRLevel) Description() string {
	switch l {
	case CEFRC1:
		return "Can express ideas fluently and spontaneously without much obvious searching for expressions."
	case CEFRB2:
		return "Can interact with a degree of fluency and spontaneity that makes regular interaction with native speakers quite possible."
	case CEFRB1Plus:
		return "Can deal with most situations likely to arise while traveling in an area where the language is spoken."
	case CEFRB1:
		return "Can produce simple connected text on topics that are familiar or of personal interest."
	case CEFRA2Plus:
		return "Can communicate in simple and routine tasks requiring a simple and direct exchange of information."
	case CEFRA2:
		return "Can describe in simple terms aspects of their background, immediate environment and matters in areas of immediate need."
	case CEFRA1:
		return "Can use and understand familiar everyday expressions and very basic phrases."
	case CEFRPreA1:
		return "Can recognize basic words and phrases on familiar topics."
	default:
		return "Level description not available."
	}
}

// Score is a published result for a candidate.
type Score struct {
	ID          int       `json:"id"`
	CandidateID int       `json:"candidate_id"`
	Score       int       `json:"score"`
	CEFRLevel   CEFRLevel `json:"cefr_level"`
	CreatedAt   time.Time `json:"created_at"`

	CandidateName string `json:"candidate_name,omitempty"`
	ExamNumber    string `json:"exam_number,omitempty"`
}

// ScoreReport is the printable view of a score.
type ScoreReport struct {
	CandidateName   string    `json:"candidate_name"`
	CandidateNumber string    `json:"candidate_number"`
	TestDate        string    `json:"test_date"`
	Score           int       `json:"score"`
	CEFRLevel       CEFRLevel `json:"cefr_level"`
	CEFRDescription string    `json:"cefr_description"`
}

// ScoreUploadRow is one line of a bulk score upload.
type ScoreUploadRow struct {
	Name       string `json:"name"`
	ExamNumber string `json:"exam_number" binding:"required"`
	Score      int    `json:"score" binding:"min=0,max=200"`
}

// UploadScoresRequest is the payload for bulk score upload.
type UploadScoresRequest struct {
	Scores []ScoreUploadRow `json:"scores" binding:"required,min=1,dive"`
}
