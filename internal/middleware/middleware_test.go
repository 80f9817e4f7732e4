package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", nil).Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", nil).Code)

	w := serve(r, http.MethodPost, "/login", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRateLimiterCleanupKeepsRecentVisitors(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	rl.get("10.0.0.1")
	rl.get("10.0.0.2")
	rl.visitors["10.0.0.2"].lastSeen = time.Now().Add(-time.Hour)

	rl.cleanup(time.Minute)

	require.Contains(t, rl.visitors, "10.0.0.1")
	require.NotContains(t, rl.visitors, "10.0.0.2")
}

func TestCacheHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/media", CacheControl(3600), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/live", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, "public, max-age=3600, immutable", serve(r, http.MethodGet, "/media", nil).Header().Get("Cache-Control"))
	require.Equal(t, "no-store", serve(r, http.MethodGet, "/live", nil).Header().Get("Cache-Control"))
}

func withClaims(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyClaims, &service.Claims{TokenType: service.TokenTypeAdmin, UserID: 1, Permissions: perms})
		c.Next()
	}
}

func TestRequirePermission(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	r := gin.New()
	r.GET("/none", RequirePermission(model.PermissionScoresRead), ok)
	r.GET("/granted", withClaims("scores:read"), RequirePermission(model.PermissionScoresRead), ok)
	r.GET("/denied", withClaims("questions:read"), RequirePermission(model.PermissionScoresRead), ok)
	r.GET("/any", withClaims("admins:read"), RequireAnyPermission(model.PermissionRolesRead, model.PermissionAdminsRead), ok)
	r.GET("/any-denied", withClaims("scores:read"), RequireAnyPermission(model.PermissionRolesRead, model.PermissionAdminsRead), ok)

	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/none", nil).Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/granted", nil).Code)
	require.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/denied", nil).Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/any", nil).Code)
	require.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/any-denied", nil).Code)
}

func TestBrotli(t *testing.T) {
	body := strings.Repeat("speaking ", 400)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/api/v1/admin/dashboard", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/api/v1/admin/scores/1/pdf", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	br := http.Header{"Accept-Encoding": []string{"gzip, br"}}

	t.Run("compresses large bodies", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/admin/dashboard", br)
		require.Equal(t, "br", w.Header().Get("Content-Encoding"))
		require.Less(t, w.Body.Len(), len(body))
	})

	t.Run("skips small bodies", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/small", br)
		require.Empty(t, w.Header().Get("Content-Encoding"))
		require.Equal(t, "ok", w.Body.String())
	})

	t.Run("skips compressed payloads", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/admin/scores/1/pdf", br)
		require.Empty(t, w.Header().Get("Content-Encoding"))
	})

	t.Run("skips without accept-encoding", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/admin/dashboard", nil)
		require.Empty(t, w.Header().Get("Content-Encoding"))
		require.Equal(t, body, w.Body.String())
	})
}

func TestBearerOrQuery(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	require.Equal(t, "abc", bearerOrQuery(c))

	c.Request.Header.Set("Authorization", "Bearer xyz")
	require.Equal(t, "xyz", bearerOrQuery(c))
}
