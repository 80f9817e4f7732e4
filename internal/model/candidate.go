package model

import "time"

// Candidate is a test taker identified by name and exam number.
type Candidate struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	ExamNumber        string    `json:"exam_number"`
	RemainingAttempts int       `json:"remaining_attempts"`
	HasCompleted      bool      `json:"has_completed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CandidateLoginRequest is the payload for candidate authentication.
type CandidateLoginRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	ExamNumber string `json:"exam_number" binding:"required,exam_number"`
}

// CandidateLoginResponse is returned after successful candidate login.
type CandidateLoginResponse struct {
	Token     string    `json:"token"`
	Candidate Candidate `json:"candidate"`
}

// CreateCandidateRequest registers a single candidate.
type CreateCandidateRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	ExamNumber string `json:"exam_number" binding:"required,exam_number"`
}

// BulkCreateCandidatesRequest registers many candidates at once.
type BulkCreateCandidatesRequest struct {
	Candidates []CreateCandidateRequest `json:"candidates" binding:"required,min=1,max=1000,dive"`
}

// BulkResult summarises a bulk import.
type BulkResult struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// ResetAttemptsRequest restores attempts for the listed candidates.
type ResetAttemptsRequest struct {
	CandidateIDs []int `json:"candidate_ids" binding:"required,min=1,dive,gt=0"`
}

// CandidateFilter narrows the admin candidate list.
type CandidateFilter struct {
	Search    string
	Completed *bool
	Page      int
	PerPage   int
}
