package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
)

type fakeAnalyticsSnapshots struct {
	snapshots  []models.WellnessSnapshot
	school     map[string]*models.WellnessAverages
	deptAvgs   []models.WellnessAverages
	topRisk    []models.TeacherAtRisk
	schoolCall int
}

func (f *fakeAnalyticsSnapshots) ListRange(context.Context, string, time.Time, time.Time) ([]models.WellnessSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeAnalyticsSnapshots) SchoolAverages(_ context.Context, schoolID string, _, _ time.Time) (*models.WellnessAverages, error) {
	f.schoolCall++
	if avg, ok := f.school[schoolID]; ok {
		return avg, nil
	}
	return &models.WellnessAverages{}, nil
}

func (f *fakeAnalyticsSnapshots) DepartmentAverages(context.Context, string, time.Time, time.Time) ([]models.WellnessAverages, error) {
	return f.deptAvgs, nil
}

func (f *fakeAnalyticsSnapshots) TopRiskTeachers(context.Context, string, int) ([]models.TeacherAtRisk, error) {
	return f.topRisk, nil
}

type fakeAnalyticsTeachers struct {
	byID     map[string]*models.Teacher
	bySchool []models.Teacher
}

func (f *fakeAnalyticsTeachers) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := f.byID[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAnalyticsTeachers) ListBySchool(context.Context, string) ([]models.Teacher, error) {
	return f.bySchool, nil
}

type fakeAnalyticsAlerts struct {
	alerts []models.Alert
	active int
	crit   int
	byDept map[string]int
}

func (f *fakeAnalyticsAlerts) List(context.Context, models.AlertFilter) ([]models.Alert, error) {
	return f.alerts, nil
}

func (f *fakeAnalyticsAlerts) CountActive(_ context.Context, _ string, criticalOnly bool) (int, error) {
	if criticalOnly {
		return f.crit, nil
	}
	return f.active, nil
}

func (f *fakeAnalyticsAlerts) CountActiveByDepartment(context.Context, string) (map[string]int, error) {
	return f.byDept, nil
}

func snapshotsWithScores(scores ...float64) []models.WellnessSnapshot {
	out := make([]models.WellnessSnapshot, len(scores))
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, score := range scores {
		out[i] = models.WellnessSnapshot{
			TeacherID:     "t-1",
			MetricDate:    base.AddDate(0, 0, i),
			WellnessScore: score,
			StressScore:   100 - score,
		}
	}
	return out
}

func TestBuildTrendDeadBand(t *testing.T) {
	assert.Equal(t, models.TrendStable, buildTrend(71, 70, 3).Direction)
	assert.Equal(t, models.TrendStable, buildTrend(67, 70, 3).Direction)
	assert.Equal(t, models.TrendImproving, buildTrend(80, 70, 3).Direction)
	assert.Equal(t, models.TrendDeclining, buildTrend(60, 70, 3).Direction)
}

func TestTeacherReportAveragesAndTrend(t *testing.T) {
	teacher := testTeacher()
	teacher.RiskLevel = models.RiskHigh
	svc := NewAnalyticsService(
		&fakeAnalyticsSnapshots{snapshots: snapshotsWithScores(80, 78, 60, 56)},
		&fakeAnalyticsTeachers{byID: map[string]*models.Teacher{"t-1": teacher}},
		&fakeAnalyticsAlerts{alerts: []models.Alert{
			{TeacherID: "t-1", Resolved: false},
			{TeacherID: "t-1", Resolved: true},
		}},
		nil, nil, 3, nil)

	report, err := svc.TeacherReport(context.Background(), "t-1", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)

	assert.InDelta(t, 68.5, report.AverageWellness, 0.001)
	assert.Equal(t, models.TrendDeclining, report.Trend.Direction)
	assert.Equal(t, 1, report.ActiveAlerts)
	assert.Equal(t, 1, report.ResolvedAlerts)
	assert.NotEmpty(t, report.Recommendations)
}

func TestTeacherReportUnknownTeacher(t *testing.T) {
	svc := NewAnalyticsService(
		&fakeAnalyticsSnapshots{},
		&fakeAnalyticsTeachers{},
		&fakeAnalyticsAlerts{},
		nil, nil, 3, nil)

	_, err := svc.TeacherReport(context.Background(), "ghost", time.Now().AddDate(0, 0, -7), time.Now())
	assert.Error(t, err)
}

func TestDepartmentOverviewRecommendsIntervention(t *testing.T) {
	svc := NewAnalyticsService(
		&fakeAnalyticsSnapshots{deptAvgs: []models.WellnessAverages{
			{GroupKey: "Mathematics", TeacherCount: 4, AvgWellness: 52, AvgStress: 48},
			{GroupKey: "Science", TeacherCount: 5, AvgWellness: 81, AvgStress: 19},
		}},
		&fakeAnalyticsTeachers{bySchool: []models.Teacher{
			{Department: "Mathematics", RiskLevel: models.RiskCritical},
			{Department: "Science", RiskLevel: models.RiskLow},
		}},
		&fakeAnalyticsAlerts{byDept: map[string]int{"Mathematics": 3}},
		nil, nil, 3, nil)

	overview, err := svc.DepartmentOverview(context.Background(), "s-1", time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	require.Len(t, overview.Departments, 2)

	math := overview.Departments[0]
	assert.Equal(t, "Mathematics", math.Department)
	assert.NotEmpty(t, math.Recommendations, "low averages must recommend an intervention")
	assert.Equal(t, 3, math.ActiveAlerts)

	science := overview.Departments[1]
	assert.Empty(t, science.Recommendations)
}

func TestSchoolDashboardAggregates(t *testing.T) {
	svc := NewAnalyticsService(
		&fakeAnalyticsSnapshots{
			school: map[string]*models.WellnessAverages{
				"s-1": {TeacherCount: 2, AvgWellness: 70.4, AvgStress: 29.6},
			},
			topRisk: []models.TeacherAtRisk{{TeacherID: "t-9", WellnessScore: 35}},
		},
		&fakeAnalyticsTeachers{bySchool: []models.Teacher{
			{RiskLevel: models.RiskLow},
			{RiskLevel: models.RiskCritical},
		}},
		&fakeAnalyticsAlerts{active: 5, crit: 2},
		nil, nil, 3, nil)

	dashboard, err := svc.SchoolDashboard(context.Background(), "s-1", time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, dashboard.TeacherCount)
	assert.Equal(t, 5, dashboard.ActiveAlerts)
	assert.Equal(t, 2, dashboard.CriticalAlerts)
	assert.Equal(t, 1, dashboard.RiskCounts[string(models.RiskCritical)])
	require.Len(t, dashboard.TopRiskTeachers, 1)
	assert.NotEmpty(t, dashboard.Recommendations)
}
