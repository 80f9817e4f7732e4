package service

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// Exam flow errors returned to the HTTP layer.
var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientQuestions = errors.New("not enough active questions to build a test")
	ErrNotAttemptOwner       = errors.New("attempt belongs to another candidate")
	ErrAttemptClosed         = errors.New("attempt is already closed")
	ErrInvalidQuestionNumber = errors.New("question number is not part of this attempt")
)

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
