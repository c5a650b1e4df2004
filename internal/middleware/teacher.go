package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/wellness-api/internal/models"
)

// ContextTeacherKey is the gin context key storing the caller's teacher record.
const ContextTeacherKey = "currentTeacher"

// TeacherResolver loads the teacher record owned by a login identity.
type TeacherResolver interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

// ResolveTeacher loads the teacher record behind an authenticated TEACHER
// account and stores it on the context. A teacher's login user id and their
// teacher record id are distinct, so self-scoped routes must compare against
// the record, not the claims. Accounts without a record proceed with nothing
// set and the RBAC SELF rule denies them.
func ResolveTeacher(teachers TeacherResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claimsValue, exists := c.Get(ContextUserKey); exists {
			claims := claimsValue.(*models.JWTClaims)
			if claims.Role == models.RoleTeacher {
				if teacher, err := teachers.FindByUserID(c.Request.Context(), claims.UserID); err == nil {
					c.Set(ContextTeacherKey, teacher)
				}
			}
		}
		c.Next()
	}
}

// TeacherFromContext returns the resolved teacher record, or nil when the
// caller is not a teacher or has no record.
func TeacherFromContext(c *gin.Context) *models.Teacher {
	value, exists := c.Get(ContextTeacherKey)
	if !exists {
		return nil
	}
	teacher, _ := value.(*models.Teacher)
	return teacher
}
