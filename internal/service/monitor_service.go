package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/pkg/config"
	"github.com/edupulse/wellness-api/pkg/jobs"
)

// Monitoring cadence names used in logs and metrics labels.
const (
	CadenceFrequent = "frequent"
	CadenceDaily    = "daily"
	CadenceWeekly   = "weekly"
)

type monitorWellness interface {
	CalculateTeacherWorkload(ctx context.Context, teacherID string, date time.Time) (*models.WorkloadSummary, error)
	MonitorAllTeachers(ctx context.Context, schoolID string, date time.Time) ([]TeacherSummaryResult, int, error)
	WeeklyAverage(ctx context.Context, teacherID string, endingAt time.Time) (float64, bool, error)
}

type monitorAlerts interface {
	Create(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	AutoResolve(ctx context.Context, summary *models.WorkloadSummary, policy models.WorkloadPolicy, clearOverworkPct, clearWellness float64, lateEveningThreshold int) int
}

// monitorAlertStore covers maintenance queries the alert service does not
// expose: retention purging and weekly activity counts.
type monitorAlertStore interface {
	DeleteResolvedBefore(ctx context.Context, schoolID string, cutoff time.Time) (int64, error)
	CountCreatedBetween(ctx context.Context, schoolID string, from, to time.Time) (int, error)
	CountResolvedBetween(ctx context.Context, schoolID string, from, to time.Time) (int, error)
}

type monitorSchoolRepository interface {
	ListActive(ctx context.Context) ([]models.School, error)
}

type monitorTeacherRepository interface {
	ListAtRisk(ctx context.Context, schoolID string) ([]models.Teacher, error)
}

type monitorScheduleRepository interface {
	PolicyByTeacher(ctx context.Context, teacherID string) (models.WorkloadPolicy, error)
}

type monitorSnapshotRepository interface {
	SchoolAverages(ctx context.Context, schoolID string, from, to time.Time) (*models.WellnessAverages, error)
	TopRiskTeachers(ctx context.Context, schoolID string, limit int) ([]models.TeacherAtRisk, error)
}

type monitorTrends interface {
	SchoolTrend(ctx context.Context, schoolID string, from, to time.Time) (models.WellnessTrend, error)
}

// MonitorService drives the three recurring passes. Each cadence is guarded
// by a single-flight flag: if a tick fires while the previous run of the same
// cadence is still executing, the tick is skipped and counted. Different
// cadences may overlap freely.
type MonitorService struct {
	wellnessCfg config.WellnessConfig
	monitorCfg  config.MonitorConfig

	wellness   monitorWellness
	alerts     monitorAlerts
	alertStore monitorAlertStore
	schools    monitorSchoolRepository
	teachers   monitorTeacherRepository
	schedules  monitorScheduleRepository
	snapshots  monitorSnapshotRepository
	trends     monitorTrends

	notifier Notifier
	cache    *CacheService
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger

	frequentRunning atomic.Bool
	dailyRunning    atomic.Bool
	weeklyRunning   atomic.Bool
}

// MonitorDeps bundles the monitor's collaborators.
type MonitorDeps struct {
	Wellness   monitorWellness
	Alerts     monitorAlerts
	AlertStore monitorAlertStore
	Schools    monitorSchoolRepository
	Teachers   monitorTeacherRepository
	Schedules  monitorScheduleRepository
	Snapshots  monitorSnapshotRepository
	Trends     monitorTrends
	Notifier   Notifier
	Cache      *CacheService
	Queue      *jobs.Queue
	Metrics    *MetricsService
	Logger     *zap.Logger
}

func NewMonitorService(wellnessCfg config.WellnessConfig, monitorCfg config.MonitorConfig, deps MonitorDeps) *MonitorService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorService{
		wellnessCfg: wellnessCfg,
		monitorCfg:  monitorCfg,
		wellness:    deps.Wellness,
		alerts:      deps.Alerts,
		alertStore:  deps.AlertStore,
		schools:     deps.Schools,
		teachers:    deps.Teachers,
		schedules:   deps.Schedules,
		snapshots:   deps.Snapshots,
		trends:      deps.Trends,
		notifier:    deps.Notifier,
		cache:       deps.Cache,
		queue:       deps.Queue,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// Start launches the cadence tickers and blocks until ctx is cancelled.
// Intended to run in its own goroutine.
func (s *MonitorService) Start(ctx context.Context) {
	if !s.monitorCfg.Enabled {
		s.logger.Info("monitor disabled")
		return
	}

	frequent := time.NewTicker(s.monitorCfg.FrequentInterval)
	daily := time.NewTicker(s.monitorCfg.DailyInterval)
	weekly := time.NewTicker(s.monitorCfg.WeeklyInterval)
	defer frequent.Stop()
	defer daily.Stop()
	defer weekly.Stop()

	s.logger.Info("monitor started",
		zap.Duration("frequent", s.monitorCfg.FrequentInterval),
		zap.Duration("daily", s.monitorCfg.DailyInterval),
		zap.Duration("weekly", s.monitorCfg.WeeklyInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("monitor stopped")
			return
		case <-frequent.C:
			go s.RunFrequent(ctx)
		case <-daily.C:
			go s.RunDaily(ctx)
		case <-weekly.C:
			go s.RunWeekly(ctx)
		}
	}
}

// RunFrequent re-checks only teachers already at elevated risk. Returns false
// when the previous frequent run was still in flight.
func (s *MonitorService) RunFrequent(ctx context.Context) bool {
	return s.run(ctx, CadenceFrequent, &s.frequentRunning, s.frequentPass)
}

// RunDaily recomputes every teacher of every active school. Returns false
// when skipped by the single-flight guard.
func (s *MonitorService) RunDaily(ctx context.Context) bool {
	return s.run(ctx, CadenceDaily, &s.dailyRunning, s.dailyPass)
}

// RunWeekly produces per-school trend digests and exports. Returns false when
// skipped by the single-flight guard.
func (s *MonitorService) RunWeekly(ctx context.Context) bool {
	return s.run(ctx, CadenceWeekly, &s.weeklyRunning, s.weeklyPass)
}

func (s *MonitorService) run(ctx context.Context, cadence string, guard *atomic.Bool, pass func(context.Context)) bool {
	if !guard.CompareAndSwap(false, true) {
		s.metrics.MonitorRunSkipped(cadence)
		s.logger.Warn("monitor run skipped, previous still executing", zap.String("cadence", cadence))
		return false
	}
	defer guard.Store(false)

	start := time.Now()
	pass(ctx)
	s.metrics.ObserveMonitorRun(cadence, time.Since(start))
	return true
}

func (s *MonitorService) frequentPass(ctx context.Context) {
	schools, err := s.schools.ListActive(ctx)
	if err != nil {
		s.logger.Error("frequent pass school listing failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, school := range schools {
		teachers, err := s.teachers.ListAtRisk(ctx, school.ID)
		if err != nil {
			s.logger.Warn("frequent pass failed for school",
				zap.String("school_id", school.ID), zap.Error(err))
			continue
		}
		created, resolved := 0, 0
		for _, teacher := range teachers {
			summary, err := s.wellness.CalculateTeacherWorkload(ctx, teacher.ID, now)
			if err != nil {
				s.logger.Warn("frequent check failed for teacher",
					zap.String("teacher_id", teacher.ID), zap.Error(err))
				continue
			}
			policy, err := s.schedules.PolicyByTeacher(ctx, teacher.ID)
			if err != nil {
				policy = models.DefaultWorkloadPolicy(teacher.ID)
			}
			resolved += s.alerts.AutoResolve(ctx, summary, policy,
				s.wellnessCfg.OverworkClearPct, s.wellnessCfg.WellnessClearScore, s.wellnessCfg.LateEveningThreshold)
			created += s.enforceThresholds(ctx, teacher, summary, now)
			s.cache.InvalidateTeacher(ctx, teacher.ID)
		}
		if created > 0 || resolved > 0 {
			s.logger.Sugar().Infow("frequent pass complete",
				"school_id", school.ID, "at_risk", len(teachers),
				"alerts_created", created, "alerts_resolved", resolved)
		}
	}
}

func (s *MonitorService) dailyPass(ctx context.Context) {
	schools, err := s.schools.ListActive(ctx)
	if err != nil {
		s.logger.Error("daily pass school listing failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, school := range schools {
		result := s.DailySchoolPass(ctx, school.ID, now)
		s.logger.Sugar().Infow("daily pass complete",
			"school_id", school.ID,
			"teachers_seen", result.TeachersSeen,
			"teachers_failed", result.TeachersFailed,
			"alerts_created", result.AlertsCreated,
			"alerts_resolved", result.AlertsResolved)
	}
}

// DailySchoolPass runs the full daily evaluation for one school: recompute
// every teacher, raise and auto-resolve alerts, purge stale resolved rows,
// invalidate cached analytics, and push updates to connected clients.
// Also used by the manual-trigger endpoint.
func (s *MonitorService) DailySchoolPass(ctx context.Context, schoolID string, date time.Time) models.MonitorRunResult {
	result := models.MonitorRunResult{SchoolID: schoolID}

	summaries, failed, err := s.wellness.MonitorAllTeachers(ctx, schoolID, date)
	if err != nil {
		s.logger.Error("daily pass failed for school", zap.String("school_id", schoolID), zap.Error(err))
		result.TeachersFailed = failed
		return result
	}
	result.TeachersSeen = len(summaries)
	result.TeachersFailed = failed

	for _, item := range summaries {
		policy, err := s.schedules.PolicyByTeacher(ctx, item.Teacher.ID)
		if err != nil {
			policy = models.DefaultWorkloadPolicy(item.Teacher.ID)
		}
		result.AlertsResolved += s.alerts.AutoResolve(ctx, item.Summary, policy,
			s.wellnessCfg.OverworkClearPct, s.wellnessCfg.WellnessClearScore, s.wellnessCfg.LateEveningThreshold)
		result.AlertsCreated += s.enforceThresholds(ctx, item.Teacher, item.Summary, date)

		if s.notifier != nil && item.Teacher.UserID != "" {
			if s.notifier.SendToUser(item.Teacher.UserID, models.Notification{
				Type: models.MsgWellnessMetricsUpdate,
				Data: item.Summary,
			}) {
				s.metrics.NotificationSent(models.MsgWellnessMetricsUpdate)
			}
		}
	}

	cutoff := date.Add(-s.wellnessCfg.ResolvedRetention)
	if purged, err := s.alertStore.DeleteResolvedBefore(ctx, schoolID, cutoff); err != nil {
		s.logger.Warn("resolved alert purge failed", zap.String("school_id", schoolID), zap.Error(err))
	} else if purged > 0 {
		s.logger.Info("resolved alerts purged", zap.String("school_id", schoolID), zap.Int64("count", purged))
	}

	s.cache.InvalidateSchool(ctx, schoolID)

	if s.notifier != nil {
		sent := s.notifier.SendToRole(schoolID, models.AdminRoles, models.Notification{
			Type: models.MsgWellnessMetricsUpdate,
			Data: result,
		})
		for i := 0; i < sent; i++ {
			s.metrics.NotificationSent(models.MsgWellnessMetricsUpdate)
		}
	}

	return result
}

func (s *MonitorService) weeklyPass(ctx context.Context) {
	schools, err := s.schools.ListActive(ctx)
	if err != nil {
		s.logger.Error("weekly pass school listing failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, school := range schools {
		if err := s.WeeklySchoolPass(ctx, school.ID, now); err != nil {
			s.logger.Warn("weekly pass failed for school",
				zap.String("school_id", school.ID), zap.Error(err))
		}
	}
}

// WeeklySchoolPass builds the week digest for one school and enqueues its
// export job.
func (s *MonitorService) WeeklySchoolPass(ctx context.Context, schoolID string, now time.Time) error {
	weekEnd := now
	weekStart := now.AddDate(0, 0, -7)

	averages, err := s.snapshots.SchoolAverages(ctx, schoolID, weekStart, weekEnd)
	if err != nil {
		return err
	}
	// Two-week window so the halves give a week-over-week comparison.
	trend, err := s.trends.SchoolTrend(ctx, schoolID, now.AddDate(0, 0, -14), weekEnd)
	if err != nil {
		trend = models.WellnessTrend{Direction: models.TrendStable}
	}
	created, err := s.alertStore.CountCreatedBetween(ctx, schoolID, weekStart, weekEnd)
	if err != nil {
		return err
	}
	resolved, err := s.alertStore.CountResolvedBetween(ctx, schoolID, weekStart, weekEnd)
	if err != nil {
		return err
	}
	topRisk, err := s.snapshots.TopRiskTeachers(ctx, schoolID, 10)
	if err != nil {
		return err
	}

	summary := &models.WeeklySchoolSummary{
		SchoolID:        schoolID,
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		TeacherCount:    averages.TeacherCount,
		AverageWellness: round2(averages.AvgWellness),
		Trend:           trend,
		AlertsCreated:   created,
		AlertsResolved:  resolved,
	}

	if s.queue != nil {
		job := jobs.Job{
			Type:    jobs.JobTypeWeeklyExport,
			Payload: &WeeklyExportPayload{Summary: summary, Rows: topRisk},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("weekly export enqueue failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}

	s.logger.Sugar().Infow("weekly pass complete",
		"school_id", schoolID,
		"avg_wellness", summary.AverageWellness,
		"trend", string(trend.Direction),
		"alerts_created", created,
		"alerts_resolved", resolved)
	return nil
}

// enforceThresholds evaluates the alert rules against a fresh summary and
// creates the missing alerts. An active alert of the same type suppresses a
// duplicate. Returns how many alerts were created.
func (s *MonitorService) enforceThresholds(ctx context.Context, teacher models.Teacher, summary *models.WorkloadSummary, date time.Time) int {
	policy, err := s.schedules.PolicyByTeacher(ctx, teacher.ID)
	if err != nil {
		policy = models.DefaultWorkloadPolicy(teacher.ID)
	}

	var prevWeekAvg *float64
	if avg, ok, err := s.wellness.WeeklyAverage(ctx, teacher.ID, date.AddDate(0, 0, -7)); err == nil && ok {
		prevWeekAvg = &avg
	}

	candidates := EvaluateThresholds(s.wellnessCfg, summary, policy, prevWeekAvg)
	if len(candidates) == 0 {
		return 0
	}

	activeTypes := make(map[models.AlertType]bool)
	if active, err := s.alerts.List(ctx, models.AlertFilter{TeacherID: teacher.ID}); err == nil {
		for i := range active {
			activeTypes[active[i].Type] = true
		}
	}

	created := 0
	for _, candidate := range candidates {
		if activeTypes[candidate.Type] {
			continue
		}
		alert := BuildAlert(&teacher, candidate.Type, candidate.Severity, summary, candidate.Recommendations)
		if err := s.alerts.Create(ctx, alert); err != nil {
			s.logger.Warn("threshold alert create failed",
				zap.String("teacher_id", teacher.ID),
				zap.String("type", string(candidate.Type)),
				zap.Error(err))
			continue
		}
		created++
	}
	return created
}

// AlertCandidate is one threshold rule that fired.
type AlertCandidate struct {
	Type            models.AlertType
	Severity        models.AlertSeverity
	Recommendations models.Recommendations
}

// EvaluateThresholds applies the alerting rules to a workload summary.
// prevWeekAvg carries the previous week's mean wellness when available; the
// week-over-week decline rule only fires with history present.
func EvaluateThresholds(cfg config.WellnessConfig, summary *models.WorkloadSummary, policy models.WorkloadPolicy, prevWeekAvg *float64) []AlertCandidate {
	var candidates []AlertCandidate

	if summary.WorkloadPercentage > cfg.OverworkCriticalPct {
		candidates = append(candidates, AlertCandidate{
			Type:     models.AlertOverworkWarning,
			Severity: models.SeverityCritical,
			Recommendations: models.Recommendations{
				{Action: "reduce_load", Detail: "Remove or reassign classes to bring the week under the policy maximum."},
				{Action: "review_policy", Detail: "Confirm the workload policy still matches this teacher's contract."},
			},
		})
	}

	if summary.Risk == models.RiskCritical {
		candidates = append(candidates, AlertCandidate{
			Type:     models.AlertBurnoutRisk,
			Severity: models.SeverityCritical,
			Recommendations: models.Recommendations{
				{Action: "immediate_checkin", Detail: "Meet with the teacher before their next scheduled class."},
				{Action: "temporary_relief", Detail: "Arrange cover for part of this week's schedule."},
			},
		})
	}

	if summary.Snapshot.ConsecutivePeriodsMax > policy.MaxConsecutivePeriods {
		candidates = append(candidates, AlertCandidate{
			Type:     models.AlertConsecutivePeriods,
			Severity: models.SeverityWarning,
			Recommendations: models.Recommendations{
				{Action: "insert_breaks", Detail: "Split the longest back-to-back block with a free period."},
			},
		})
	}

	if prevWeekAvg != nil && *prevWeekAvg-summary.Snapshot.WellnessScore > cfg.WellnessDeclinePoints {
		candidates = append(candidates, AlertCandidate{
			Type:     models.AlertWellnessDecline,
			Severity: models.SeverityWarning,
			Recommendations: models.Recommendations{
				{Action: "compare_weeks", Detail: "Review what changed in this week's timetable versus last week."},
			},
		})
	}

	if summary.LateEveningCount > cfg.LateEveningThreshold {
		candidates = append(candidates, AlertCandidate{
			Type:     models.AlertLateEveningPattern,
			Severity: models.SeverityInfo,
			Recommendations: models.Recommendations{
				{Action: "rebalance_evenings", Detail: "Move some late classes to morning or midday slots."},
			},
		})
	}

	return candidates
}

// WeeklyExportPayload travels through the job queue from the weekly pass to
// the export handler.
type WeeklyExportPayload struct {
	Summary *models.WeeklySchoolSummary
	Rows    []models.TeacherAtRisk
}
