package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func failed(t *testing.T, err error) (int, response.ErrCode) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	failWith(c, err)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return w.Code, body.Error.Code
}

func TestFailWithMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{pgx.ErrNoRows, http.StatusNotFound, response.ErrNotFound},
		{fmt.Errorf("get candidate: %w", pgx.ErrNoRows), http.StatusNotFound, response.ErrNotFound},
		{repository.ErrNoAttemptsLeft, http.StatusForbidden, response.ErrNoAttemptsLeft},
		{service.ErrInsufficientQuestions, http.StatusServiceUnavailable, response.ErrInsufficientQuestions},
		{fmt.Errorf("%w: 9000000 bytes", service.ErrFileTooLarge), http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
		{repository.ErrDuplicateExamNumber, http.StatusConflict, response.ErrConflict},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tc := range cases {
		status, code := failed(t, tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestIntParam(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-4"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		_, ok := intParam(c, "id")
		require.False(t, ok, raw)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := intParam(c, "id")
	require.True(t, ok)
	require.Equal(t, 42, id)
}

func TestSessionErrorCode(t *testing.T) {
	require.Equal(t, response.ErrAttemptInProgress, sessionErrorCode(service.ErrAttemptInProgress))
	require.Equal(t, response.ErrNotAttemptOwner, sessionErrorCode(fmt.Errorf("open: %w", service.ErrNotAttemptOwner)))
	require.Equal(t, response.ErrInternal, sessionErrorCode(errors.New("redis down")))
}

func TestDashboardRejectsNonNumericRecent(t *testing.T) {
	h := NewDashboardHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard?recent=lots", nil)

	h.GetDashboardData(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, response.ErrValidation, body.Error.Code)
	require.Contains(t, body.Error.Fields, "recent")
}
