package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/middleware"
	"github.com/edupulse/wellness-api/internal/models"
)

type monitorServiceMock struct {
	started      bool
	ranCadences  []string
	schoolPassed string
}

func (m *monitorServiceMock) RunFrequent(ctx context.Context) bool {
	m.ranCadences = append(m.ranCadences, "frequent")
	return m.started
}

func (m *monitorServiceMock) RunDaily(ctx context.Context) bool {
	m.ranCadences = append(m.ranCadences, "daily")
	return m.started
}

func (m *monitorServiceMock) RunWeekly(ctx context.Context) bool {
	m.ranCadences = append(m.ranCadences, "weekly")
	return m.started
}

func (m *monitorServiceMock) DailySchoolPass(ctx context.Context, schoolID string, date time.Time) models.MonitorRunResult {
	m.schoolPassed = schoolID
	return models.MonitorRunResult{SchoolID: schoolID, TeachersSeen: 3}
}

func monitorTestContext(t *testing.T, target string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, target, nil)
	require.NoError(t, err)
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestMonitorHandlerRunDaily(t *testing.T) {
	mockSvc := &monitorServiceMock{started: true}
	handler := NewMonitorHandler(mockSvc)

	c, w := monitorTestContext(t, "/monitor/run/daily", &models.JWTClaims{UserID: "admin-1", SchoolID: "s-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "cadence", Value: "daily"}}
	handler.Run(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"daily"}, mockSvc.ranCadences)
}

func TestMonitorHandlerRunUnknownCadence(t *testing.T) {
	mockSvc := &monitorServiceMock{started: true}
	handler := NewMonitorHandler(mockSvc)

	c, w := monitorTestContext(t, "/monitor/run/hourly", &models.JWTClaims{UserID: "admin-1", SchoolID: "s-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "cadence", Value: "hourly"}}
	handler.Run(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.ranCadences)
}

func TestMonitorHandlerRunAlreadyRunning(t *testing.T) {
	mockSvc := &monitorServiceMock{started: false}
	handler := NewMonitorHandler(mockSvc)

	c, w := monitorTestContext(t, "/monitor/run/weekly", &models.JWTClaims{UserID: "admin-1", SchoolID: "s-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "cadence", Value: "weekly"}}
	handler.Run(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestMonitorHandlerRunSchoolUsesClaimsSchool(t *testing.T) {
	mockSvc := &monitorServiceMock{}
	handler := NewMonitorHandler(mockSvc)

	c, w := monitorTestContext(t, "/monitor/run-school", &models.JWTClaims{UserID: "admin-1", SchoolID: "s-7", Role: models.RolePrincipal})
	handler.RunSchool(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-7", mockSvc.schoolPassed)
}
