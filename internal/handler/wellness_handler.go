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

type wellnessService interface {
	CalculateTeacherWorkload(ctx context.Context, teacherID string, date time.Time) (*models.WorkloadSummary, error)
	SnapshotHistory(ctx context.Context, teacherID string, from, to time.Time) ([]models.WellnessSnapshot, error)
}

// WellnessHandler exposes workload calculation and snapshot history.
type WellnessHandler struct {
	service wellnessService
}

func NewWellnessHandler(service wellnessService) *WellnessHandler {
	return &WellnessHandler{service: service}
}

// Calculate recomputes and persists the teacher's workload for a date.
func (h *WellnessHandler) Calculate(c *gin.Context) {
	teacherID := c.Param("teacherId")
	date, ok := dateQuery(c, "date", time.Now().UTC())
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	summary, err := h.service.CalculateTeacherWorkload(c.Request.Context(), teacherID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// History lists a teacher's snapshots for a date window, defaulting to the
// last 30 days.
func (h *WellnessHandler) History(c *gin.Context) {
	teacherID := c.Param("teacherId")
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
	if to.Before(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must not precede from"))
		return
	}

	snapshots, err := h.service.SnapshotHistory(c.Request.Context(), teacherID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, map[string]interface{}{"count": len(snapshots)})
}
