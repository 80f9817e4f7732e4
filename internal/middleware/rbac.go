package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
)

// RequirePermission lets an admin through only when their token carries p.
func RequirePermission(p model.Permission) gin.HandlerFunc {
	return RequireAnyPermission(p)
}

// RequireAnyPermission lets an admin through when their token carries at
// least one of perms. Permissions are embedded at login, so a role change
// takes effect on the admin's next sign-in.
func RequireAnyPermission(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !hasAny(claims.Permissions, perms) {
			response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

func hasAny(granted []string, wanted []model.Permission) bool {
	for _, p := range wanted {
		if slices.Contains(granted, string(p)) {
			return true
		}
	}
	return false
}
