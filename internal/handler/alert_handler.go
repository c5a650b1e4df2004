package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/wellness-api/internal/middleware"
	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/response"
)

type alertService interface {
	Get(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	Acknowledge(ctx context.Context, id, actorID string) (*models.Alert, error)
	Resolve(ctx context.Context, id, actorID string) (*models.Alert, error)
	Statistics(ctx context.Context, schoolID string, from, to time.Time) (*models.AlertStatistics, error)
	Trends(ctx context.Context, schoolID string, days int) ([]models.AlertTrendPoint, error)
}

// AlertHandler exposes the alert lifecycle over HTTP.
type AlertHandler struct {
	service alertService
}

func NewAlertHandler(service alertService) *AlertHandler {
	return &AlertHandler{service: service}
}

// List returns alerts filtered by query parameters. Teachers only see their
// own alerts; admins can query any scope of their school.
func (h *AlertHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AlertFilter{
		TeacherID:       strings.TrimSpace(c.Query("teacherId")),
		SchoolID:        claims.SchoolID,
		IncludeResolved: c.Query("includeResolved") == "true",
	}
	if claims.Role == models.RoleTeacher {
		// Teachers are scoped by their teacher record id, which differs
		// from the login user id in the claims.
		teacher := middleware.TeacherFromContext(c)
		if teacher == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no teacher record for this account"))
			return
		}
		filter.TeacherID = teacher.ID
	}
	if raw := strings.TrimSpace(c.Query("severity")); raw != "" {
		severity := models.AlertSeverity(raw)
		filter.Severity = &severity
	}
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		alertType := models.AlertType(raw)
		filter.Type = &alertType
	}

	alerts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, map[string]interface{}{"count": len(alerts)})
}

// Get fetches one alert.
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert)
}

// Acknowledge transitions an alert to ACKNOWLEDGED.
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alert, err := h.service.Acknowledge(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert)
}

// Resolve transitions an alert to RESOLVED.
func (h *AlertHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alert, err := h.service.Resolve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert)
}

// Statistics aggregates the school's alert activity, defaulting to the last
// 30 days.
func (h *AlertHandler) Statistics(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	now := time.Now().UTC()

	from, ok := dateQuery(c, "from", now.AddDate(0, 0, -30))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
		return
	}
	to, ok := dateQuery(c, "to", now)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), claims.SchoolID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Trends returns per-day alert activity for the school.
func (h *AlertHandler) Trends(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	days := 7
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 90 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be between 1 and 90"))
			return
		}
		days = parsed
	}

	points, err := h.service.Trends(c.Request.Context(), claims.SchoolID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points)
}
