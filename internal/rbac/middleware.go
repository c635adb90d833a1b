package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trio-driver/internal/auth"
)

// RequireRole allows callers whose role is min or above: viewer < operator < admin.
func RequireRole(min string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !Allows(role, min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
