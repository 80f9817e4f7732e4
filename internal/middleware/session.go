package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// CheckSingleDeviceSession keeps a candidate on the device they signed in
// from. The token's JTI must match the login stored in Redis; it stops
// matching when an admin resets the session or the login expires. Admin
// tokens pass through.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if claims.TokenType != service.TokenTypeCandidate {
			c.Next()
			return
		}

		err := authService.ValidateCandidateSession(c.Request.Context(), claims.UserID, claims.ID)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrNoActiveSession):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
		case errors.Is(err, service.ErrSessionInvalidated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		default:
			// Redis is unreachable: the candidate did nothing wrong.
			_ = c.Error(err)
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable)
		}
	}
}
