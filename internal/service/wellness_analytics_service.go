package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
)

type analyticsSnapshotRepository interface {
	ListRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.WellnessSnapshot, error)
	SchoolAverages(ctx context.Context, schoolID string, from, to time.Time) (*models.WellnessAverages, error)
	DepartmentAverages(ctx context.Context, schoolID string, from, to time.Time) ([]models.WellnessAverages, error)
	TopRiskTeachers(ctx context.Context, schoolID string, limit int) ([]models.TeacherAtRisk, error)
}

type analyticsTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
}

type analyticsAlertRepository interface {
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	CountActive(ctx context.Context, schoolID string, criticalOnly bool) (int, error)
	CountActiveByDepartment(ctx context.Context, schoolID string) (map[string]int, error)
}

// AnalyticsService builds the read-side aggregates: per-teacher reports,
// department overviews, and the school dashboard. Results are cached
// best-effort in redis and invalidated by the monitoring passes.
type AnalyticsService struct {
	snapshots analyticsSnapshotRepository
	teachers  analyticsTeacherRepository
	alerts    analyticsAlertRepository
	cache     *CacheService
	metrics   *MetricsService
	deadBand  float64
	logger    *zap.Logger
}

func NewAnalyticsService(snapshots analyticsSnapshotRepository, teachers analyticsTeacherRepository, alerts analyticsAlertRepository, cache *CacheService, metrics *MetricsService, deadBand float64, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deadBand <= 0 {
		deadBand = 3
	}
	return &AnalyticsService{
		snapshots: snapshots,
		teachers:  teachers,
		alerts:    alerts,
		cache:     cache,
		metrics:   metrics,
		deadBand:  deadBand,
		logger:    logger,
	}
}

// TeacherReport builds the full wellness report for one teacher over [from, to].
func (s *AnalyticsService) TeacherReport(ctx context.Context, teacherID string, from, to time.Time) (*models.TeacherWellnessReport, error) {
	key := fmt.Sprintf("wellness:teacher:%s:report:%s:%s", teacherID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached models.TeacherWellnessReport
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.FromError(err)
	}

	start := time.Now()
	snapshots, err := s.snapshots.ListRange(ctx, teacherID, from, to)
	s.metrics.ObserveDBQuery("analytics_snapshot_range", time.Since(start))
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	report := &models.TeacherWellnessReport{
		Teacher:     *teacher,
		From:        from,
		To:          to,
		Snapshots:   snapshots,
		CurrentRisk: teacher.RiskLevel,
		Trend:       s.trendFromSnapshots(snapshots),
	}

	var wellnessSum, stressSum float64
	for _, snap := range snapshots {
		wellnessSum += snap.WellnessScore
		stressSum += snap.StressScore
	}
	if len(snapshots) > 0 {
		report.AverageWellness = round2(wellnessSum / float64(len(snapshots)))
		report.AverageStress = round2(stressSum / float64(len(snapshots)))
	}

	alerts, err := s.alerts.List(ctx, models.AlertFilter{TeacherID: teacherID, IncludeResolved: true})
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	for i := range alerts {
		if alerts[i].Resolved {
			report.ResolvedAlerts++
		} else {
			report.ActiveAlerts++
		}
	}

	report.Recommendations = teacherRecommendations(report)

	s.cache.Set(ctx, key, report)
	return report, nil
}

// DepartmentOverview rolls up wellness per department within a school.
func (s *AnalyticsService) DepartmentOverview(ctx context.Context, schoolID string, from, to time.Time) (*models.DepartmentWellnessOverview, error) {
	key := fmt.Sprintf("wellness:school:%s:departments:%s:%s", schoolID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached models.DepartmentWellnessOverview
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	start := time.Now()
	averages, err := s.snapshots.DepartmentAverages(ctx, schoolID, from, to)
	s.metrics.ObserveDBQuery("analytics_department_averages", time.Since(start))
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	teachers, err := s.teachers.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	alertCounts, err := s.alerts.CountActiveByDepartment(ctx, schoolID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	riskByDept := make(map[string]map[string]int)
	for _, teacher := range teachers {
		if riskByDept[teacher.Department] == nil {
			riskByDept[teacher.Department] = make(map[string]int)
		}
		riskByDept[teacher.Department][string(teacher.RiskLevel)]++
	}

	overview := &models.DepartmentWellnessOverview{
		SchoolID:    schoolID,
		GeneratedAt: time.Now().UTC(),
		Departments: make([]models.DepartmentWellness, 0, len(averages)),
	}
	for _, avg := range averages {
		dept := models.DepartmentWellness{
			Department:      avg.GroupKey,
			TeacherCount:    avg.TeacherCount,
			AverageWellness: round2(avg.AvgWellness),
			AverageStress:   round2(avg.AvgStress),
			RiskCounts:      riskByDept[avg.GroupKey],
			ActiveAlerts:    alertCounts[avg.GroupKey],
		}
		dept.Recommendations = departmentRecommendations(dept)
		overview.Departments = append(overview.Departments, dept)
	}

	s.cache.Set(ctx, key, overview)
	return overview, nil
}

// SchoolDashboard builds the admin dashboard aggregate for a school.
func (s *AnalyticsService) SchoolDashboard(ctx context.Context, schoolID string, from, to time.Time) (*models.SchoolWellnessDashboard, error) {
	key := fmt.Sprintf("wellness:school:%s:dashboard:%s:%s", schoolID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached models.SchoolWellnessDashboard
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	start := time.Now()
	averages, err := s.snapshots.SchoolAverages(ctx, schoolID, from, to)
	s.metrics.ObserveDBQuery("analytics_school_averages", time.Since(start))
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	teachers, err := s.teachers.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	activeAlerts, err := s.alerts.CountActive(ctx, schoolID, false)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	criticalAlerts, err := s.alerts.CountActive(ctx, schoolID, true)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	start = time.Now()
	topRisk, err := s.snapshots.TopRiskTeachers(ctx, schoolID, 5)
	s.metrics.ObserveDBQuery("analytics_top_risk", time.Since(start))
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	riskCounts := make(map[string]int)
	for _, teacher := range teachers {
		riskCounts[string(teacher.RiskLevel)]++
	}

	dashboard := &models.SchoolWellnessDashboard{
		SchoolID:        schoolID,
		GeneratedAt:     time.Now().UTC(),
		TeacherCount:    len(teachers),
		AverageWellness: round2(averages.AvgWellness),
		AverageStress:   round2(averages.AvgStress),
		RiskCounts:      riskCounts,
		ActiveAlerts:    activeAlerts,
		CriticalAlerts:  criticalAlerts,
		Trend:           s.schoolTrend(ctx, schoolID, from, to),
		TopRiskTeachers: topRisk,
	}
	dashboard.Recommendations = schoolRecommendations(dashboard)

	s.cache.Set(ctx, key, dashboard)
	return dashboard, nil
}

// SchoolTrend compares the recent half of the window against the earlier half
// using school-wide averages.
func (s *AnalyticsService) SchoolTrend(ctx context.Context, schoolID string, from, to time.Time) (models.WellnessTrend, error) {
	return s.schoolTrend(ctx, schoolID, from, to), nil
}

func (s *AnalyticsService) schoolTrend(ctx context.Context, schoolID string, from, to time.Time) models.WellnessTrend {
	mid := from.Add(to.Sub(from) / 2)

	earlier, err := s.snapshots.SchoolAverages(ctx, schoolID, from, mid)
	if err != nil {
		s.logger.Warn("school trend earlier half failed", zap.String("school_id", schoolID), zap.Error(err))
		return models.WellnessTrend{Direction: models.TrendStable}
	}
	recent, err := s.snapshots.SchoolAverages(ctx, schoolID, mid, to)
	if err != nil {
		s.logger.Warn("school trend recent half failed", zap.String("school_id", schoolID), zap.Error(err))
		return models.WellnessTrend{Direction: models.TrendStable}
	}

	return buildTrend(recent.AvgWellness, earlier.AvgWellness, s.deadBand)
}

// trendFromSnapshots splits an ordered snapshot series into halves and
// compares their mean wellness.
func (s *AnalyticsService) trendFromSnapshots(snapshots []models.WellnessSnapshot) models.WellnessTrend {
	if len(snapshots) < 2 {
		return models.WellnessTrend{Direction: models.TrendStable}
	}
	mid := len(snapshots) / 2
	earlier := meanWellness(snapshots[:mid])
	recent := meanWellness(snapshots[mid:])
	return buildTrend(recent, earlier, s.deadBand)
}

// buildTrend classifies a wellness delta. Deltas inside the dead band are
// STABLE so day-to-day noise does not flip the label.
func buildTrend(recent, earlier, deadBand float64) models.WellnessTrend {
	trend := models.WellnessTrend{
		RecentAverage:  round2(recent),
		EarlierAverage: round2(earlier),
		Delta:          round2(recent - earlier),
	}
	switch {
	case math.Abs(trend.Delta) <= deadBand:
		trend.Direction = models.TrendStable
	case trend.Delta > 0:
		trend.Direction = models.TrendImproving
	default:
		trend.Direction = models.TrendDeclining
	}
	return trend
}

func meanWellness(snapshots []models.WellnessSnapshot) float64 {
	if len(snapshots) == 0 {
		return 0
	}
	var sum float64
	for _, snap := range snapshots {
		sum += snap.WellnessScore
	}
	return sum / float64(len(snapshots))
}

func teacherRecommendations(report *models.TeacherWellnessReport) []string {
	var recs []string
	if report.CurrentRisk == models.RiskCritical {
		recs = append(recs, "Schedule an immediate workload review with this teacher.")
	}
	if report.AverageWellness > 0 && report.AverageWellness < 60 {
		recs = append(recs, "Reduce weekly teaching load or redistribute classes.")
	}
	if report.Trend.Direction == models.TrendDeclining {
		recs = append(recs, "Wellness is trending down; check in before the next weekly review.")
	}
	if report.ActiveAlerts > 2 {
		recs = append(recs, "Multiple active alerts; prioritise acknowledging and resolving them.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Workload is within healthy bounds; no action needed.")
	}
	return recs
}

func departmentRecommendations(dept models.DepartmentWellness) []string {
	var recs []string
	if dept.AverageWellness > 0 && dept.AverageWellness < 60 {
		recs = append(recs, "Department average is low; an intervention is recommended.")
	}
	if dept.RiskCounts[string(models.RiskCritical)] > 0 {
		recs = append(recs, fmt.Sprintf("%d teacher(s) at critical risk; review their schedules first.", dept.RiskCounts[string(models.RiskCritical)]))
	}
	if dept.ActiveAlerts > dept.TeacherCount {
		recs = append(recs, "Active alerts exceed department size; consider hiring or reallocating staff.")
	}
	return recs
}

func schoolRecommendations(dashboard *models.SchoolWellnessDashboard) []string {
	var recs []string
	if dashboard.CriticalAlerts > 0 {
		recs = append(recs, fmt.Sprintf("%d critical alert(s) are unresolved; address them today.", dashboard.CriticalAlerts))
	}
	if dashboard.Trend.Direction == models.TrendDeclining {
		recs = append(recs, "School-wide wellness is declining; review upcoming timetable changes.")
	}
	if dashboard.AverageWellness > 0 && dashboard.AverageWellness < 60 {
		recs = append(recs, "Average wellness is below target; consider school-wide load rebalancing.")
	}
	if len(recs) == 0 {
		recs = append(recs, "No systemic issues detected this period.")
	}
	return recs
}
