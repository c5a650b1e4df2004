package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/internal/service"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/response"
)

type monitorService interface {
	RunFrequent(ctx context.Context) bool
	RunDaily(ctx context.Context) bool
	RunWeekly(ctx context.Context) bool
	DailySchoolPass(ctx context.Context, schoolID string, date time.Time) models.MonitorRunResult
}

// MonitorHandler lets administrators trigger monitoring passes manually.
type MonitorHandler struct {
	service monitorService
}

func NewMonitorHandler(service monitorService) *MonitorHandler {
	return &MonitorHandler{service: service}
}

// Run triggers one cadence by name. The single-flight guard still applies:
// a pass already in progress reports a conflict.
func (h *MonitorHandler) Run(c *gin.Context) {
	cadence := c.Param("cadence")

	var started bool
	switch cadence {
	case service.CadenceFrequent:
		started = h.service.RunFrequent(c.Request.Context())
	case service.CadenceDaily:
		started = h.service.RunDaily(c.Request.Context())
	case service.CadenceWeekly:
		started = h.service.RunWeekly(c.Request.Context())
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown cadence"))
		return
	}

	if !started {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "a "+cadence+" pass is already running"))
		return
	}
	response.JSON(c, http.StatusOK, map[string]string{"cadence": cadence, "status": "completed"})
}

// RunSchool triggers the full daily evaluation for the caller's school only.
func (h *MonitorHandler) RunSchool(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result := h.service.DailySchoolPass(c.Request.Context(), claims.SchoolID, time.Now().UTC())
	response.JSON(c, http.StatusOK, result)
}
