package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// errorStatus pairs a domain error with its HTTP status and API code.
type errorStatus struct {
	err    error
	status int
	code   response.ErrCode
}

var knownErrors = []errorStatus{
	{pgx.ErrNoRows, http.StatusNotFound, response.ErrNotFound},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSessionAlreadyActive, http.StatusConflict, response.ErrSessionActive},
	{service.ErrTooManyLoginAttempts, http.StatusTooManyRequests, response.ErrRateLimitExceeded},
	{repository.ErrAlreadyCompleted, http.StatusForbidden, response.ErrAlreadyCompleted},
	{repository.ErrNoAttemptsLeft, http.StatusForbidden, response.ErrNoAttemptsLeft},
	{service.ErrInsufficientQuestions, http.StatusServiceUnavailable, response.ErrInsufficientQuestions},
	{service.ErrNotAttemptOwner, http.StatusForbidden, response.ErrNotAttemptOwner},
	{service.ErrAttemptClosed, http.StatusConflict, response.ErrAttemptClosed},
	{service.ErrAttemptInProgress, http.StatusConflict, response.ErrAttemptInProgress},
	{service.ErrInvalidQuestionNumber, http.StatusBadRequest, response.ErrInvalidQuestionNumber},
	{service.ErrSetInfoRequired, http.StatusBadRequest, response.ErrInvalidQuestionSet},
	{service.ErrSetAudioRequired, http.StatusBadRequest, response.ErrInvalidQuestionSet},
	{service.ErrUnsupportedFileType, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
	{service.ErrEmptySheet, http.StatusBadRequest, response.ErrInvalidPayload},
	{service.ErrUnknownGuideKey, http.StatusNotFound, response.ErrNotFound},
	{service.ErrUnknownRole, http.StatusBadRequest, response.ErrValidation},
	{service.ErrUnknownPermission, http.StatusBadRequest, response.ErrValidation},
	{service.ErrSystemRole, http.StatusForbidden, response.ErrActionForbidden},
	{service.ErrProtectedAdmin, http.StatusForbidden, response.ErrActionForbidden},
	{service.ErrDeleteSelf, http.StatusForbidden, response.ErrActionForbidden},
	{repository.ErrDuplicateExamNumber, http.StatusConflict, response.ErrConflict},
	{repository.ErrDuplicateEmail, http.StatusConflict, response.ErrConflict},
	{repository.ErrDuplicateRole, http.StatusConflict, response.ErrConflict},
	{repository.ErrHasDependencies, http.StatusConflict, response.ErrDependencyExists},
}

// failWith sends the response matching err, or a 500 for anything unknown.
func failWith(c *gin.Context, err error) {
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			response.Fail(c, k.status, k.code)
			return
		}
	}
	_ = c.Error(err)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// intParam parses a positive integer path parameter, answering 400 when it
// is not one.
func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func pageQuery(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}
