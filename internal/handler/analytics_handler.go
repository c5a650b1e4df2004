package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/response"
)

type analyticsService interface {
	TeacherReport(ctx context.Context, teacherID string, from, to time.Time) (*models.TeacherWellnessReport, error)
	DepartmentOverview(ctx context.Context, schoolID string, from, to time.Time) (*models.DepartmentWellnessOverview, error)
	SchoolDashboard(ctx context.Context, schoolID string, from, to time.Time) (*models.SchoolWellnessDashboard, error)
}

// AnalyticsHandler exposes the read-side wellness aggregates.
type AnalyticsHandler struct {
	service analyticsService
}

func NewAnalyticsHandler(service analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) window(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from, ok := dateQuery(c, "from", now.AddDate(0, 0, -30))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
		return time.Time{}, time.Time{}, false
	}
	to, ok := dateQuery(c, "to", now)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must not precede from"))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// TeacherReport builds the wellness report for one teacher.
func (h *AnalyticsHandler) TeacherReport(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	report, err := h.service.TeacherReport(c.Request.Context(), c.Param("teacherId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// DepartmentOverview rolls up wellness per department of the caller's school.
func (h *AnalyticsHandler) DepartmentOverview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	overview, err := h.service.DepartmentOverview(c.Request.Context(), claims.SchoolID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview)
}

// SchoolDashboard returns the aggregate dashboard for the caller's school.
func (h *AnalyticsHandler) SchoolDashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	dashboard, err := h.service.SchoolDashboard(c.Request.Context(), claims.SchoolID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard)
}
