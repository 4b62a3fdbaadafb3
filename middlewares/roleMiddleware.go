package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/models"
	"github.com/stocklane/inventory_backend/utils"
)

// RequireRole admits only callers whose role is in the allow list.
// Role gating is enforced here on every mutating route; the client's own
// canManage gating is cosmetic and never trusted.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := utils.GetUserRoleFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			c.Abort()
			return
		}
		if _, ok := allowed[models.Role(role)]; !ok {
			c.JSON(http.StatusForbidden, gin.H{"message": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireManagement shortcuts the common Owner-or-Manager gate.
func RequireManagement() gin.HandlerFunc {
	return RequireRole(models.RoleOwner, models.RoleManager)
}
