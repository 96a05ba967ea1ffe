package middlewares

import (
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/gin-gonic/gin"
)

const forbiddenMessage = "you do not have permission to access this page"

// RequireLogin rejects requests that SessionMiddleware left anonymous.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireRole lets through the given role and admins.
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := utils.GetUsernameFromContext(ctx); !ok {
			unauthorized(c)
			return
		}
		current, _ := utils.GetRoleFromContext(ctx)
		if !HasRole(models.UserRole(current), role) {
			abortWithError(c, utils.ForbiddenError(forbiddenMessage))
			return
		}
		c.Next()
	}
}

func HasRole(current models.UserRole, required models.UserRole) bool {
	return current == required || current == models.UserRoleAdmin
}
