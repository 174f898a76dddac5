package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
)

// RequireRole gates a route on the token's role claim. Routes that depend on
// project relations do their finer-grained checks in the policy layer; this
// is only the coarse cut.
func (m *AuthMiddleware) RequireRole(allowed ...role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := RoleFromContext(c)

		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		r, err := role.Parse(raw)
		if err == nil {
			for _, want := range allowed {
				if r == want {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{
				"code":    "forbidden",
				"message": "Insufficient role",
			},
		})
	}
}
