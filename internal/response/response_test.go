package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrNotFound) })

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"absent", "", false},
		{"proxy id", "req-2025.01:abc_9", true},
		{"too long", strings.Repeat("a", 65), false},
		{"header injection", "abc\r\nSet-Cookie: x", false},
		{"spaces", "a b", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if c.header != "" {
				req.Header[HeaderRequestID] = []string{c.header}
			}
			r.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			require.NotEmpty(t, got)
			if c.keep {
				require.Equal(t, c.header, got)
			} else {
				require.NotEqual(t, c.header, got)
			}

			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, got, body.Metadata.RequestID)
			require.Equal(t, ErrNotFound, body.Error.Code)
			require.Equal(t, GetMessage(ErrNotFound), body.Error.Message)
		})
	}
}

func TestAbortFailStopsChain(t *testing.T) {
	reached := false
	r := gin.New()
	r.GET("/x",
		func(c *gin.Context) { AbortFail(c, http.StatusForbidden, ErrPermissionDenied) },
		func(c *gin.Context) { reached = true },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
	require.False(t, reached)
}

func TestFailWithFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"exam_number": "is required"})

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Nil(t, body.Data)
	require.Equal(t, "is required", body.Error.Fields["exam_number"])
	require.NotEmpty(t, body.Metadata.RequestID)
}

func TestNewPagination(t *testing.T) {
	require.Equal(t, &Pagination{Page: 2, PerPage: 20, TotalItems: 41, TotalPages: 3}, NewPagination(2, 20, 41))
	require.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
	require.Equal(t, 1, NewPagination(1, 20, 20).TotalPages)
}
