package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/response"
)

// RBAC enforces role-based access control for routes. The special role
// "SELF" additionally permits a teacher to access their own resource when the
// :teacherId path parameter matches their resolved teacher record.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		allowSelf := false
		allowedRoles := make(map[string]struct{})

		for _, a := range allowed {
			if a == "SELF" {
				allowSelf = true
				continue
			}
			allowedRoles[a] = struct{}{}
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && claims.Role == models.RoleTeacher {
			if teacher := TeacherFromContext(c); teacher != nil {
				if targetID := c.Param("teacherId"); targetID != "" && targetID == teacher.ID {
					c.Next()
					return
				}
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// AdminOnly restricts a route to school administrator roles.
func AdminOnly() gin.HandlerFunc {
	return RBAC(models.AdminRoles...)
}
