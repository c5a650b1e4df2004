package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/wellness-api/internal/middleware"
	"github.com/edupulse/wellness-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// dateQuery parses an optional YYYY-MM-DD query parameter, defaulting to now.
func dateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
