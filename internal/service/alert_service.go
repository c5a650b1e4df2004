package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/jobs"
)

// alertRepository is the persistence surface AlertService depends on.
type alertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.Alert, error)
	MarkAcknowledged(ctx context.Context, id, by string, at time.Time) error
	MarkResolved(ctx context.Context, id, by string, at time.Time) error
	SeverityCounts(ctx context.Context, schoolID string, from, to time.Time) (map[string]int, error)
	TypeCounts(ctx context.Context, schoolID string, from, to time.Time) (map[string]int, error)
	StateCounts(ctx context.Context, schoolID string, from, to time.Time) (total, acknowledged, resolved int, err error)
	DailyTrend(ctx context.Context, schoolID string, days int) ([]models.AlertTrendPoint, error)
}

// alertTeacherReader resolves teachers for notification routing.
type alertTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// Notifier delivers realtime messages. The websocket hub implements it; tests
// substitute a recorder.
type Notifier interface {
	SendToUser(userID string, notification models.Notification) bool
	SendToRole(schoolID string, roles []string, notification models.Notification) int
}

// AlertService owns the alert lifecycle: creation with realtime fan-out,
// acknowledge/resolve transitions, auto-resolution, and statistics.
type AlertService struct {
	repo      alertRepository
	teachers  alertTeacherReader
	notifier  Notifier
	queue     *jobs.Queue
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

func NewAlertService(repo alertRepository, teachers alertTeacherReader, notifier Notifier, queue *jobs.Queue, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AlertService{
		repo:      repo,
		teachers:  teachers,
		notifier:  notifier,
		queue:     queue,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
	svc.validator.RegisterValidation("alert_type", func(fl validator.FieldLevel) bool {
		switch models.AlertType(fl.Field().String()) {
		case models.AlertOverworkWarning, models.AlertBurnoutRisk, models.AlertConsecutivePeriods,
			models.AlertWellnessDecline, models.AlertLateEveningPattern:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("alert_severity", func(fl validator.FieldLevel) bool {
		switch models.AlertSeverity(fl.Field().String()) {
		case models.SeverityInfo, models.SeverityWarning, models.SeverityCritical:
			return true
		default:
			return false
		}
	})
	return svc
}

// alertPayload carries the fields an incoming alert must satisfy before it is
// persisted.
type alertPayload struct {
	TeacherID string `validate:"required"`
	Type      string `validate:"required,alert_type"`
	Severity  string `validate:"required,alert_severity"`
}

// Create persists a new alert and fans it out: the affected teacher receives
// NEW_WELLNESS_ALERT, school admin roles receive TEACHER_WELLNESS_ALERT.
// CRITICAL alerts additionally enqueue an email job. Notification failures
// never fail the create.
func (s *AlertService) Create(ctx context.Context, alert *models.Alert) error {
	if alert.Severity == "" {
		alert.Severity = models.SeverityInfo
	}
	payload := alertPayload{
		TeacherID: alert.TeacherID,
		Type:      string(alert.Type),
		Severity:  string(alert.Severity),
	}
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert payload")
	}

	teacher, err := s.teachers.FindByID(ctx, alert.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.FromError(err)
	}
	if alert.SchoolID == "" {
		alert.SchoolID = teacher.SchoolID
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return appErrors.FromError(err)
	}

	s.metrics.AlertCreated(string(alert.Severity))
	s.logger.Info("alert created",
		zap.String("alert_id", alert.ID),
		zap.String("teacher_id", alert.TeacherID),
		zap.String("type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)))

	s.notify(teacher.UserID, models.Notification{Type: models.MsgNewWellnessAlert, Data: alert})
	s.notifyRole(alert.SchoolID, models.Notification{Type: models.MsgTeacherWellnessAlert, Data: alert})

	if alert.Severity == models.SeverityCritical && s.queue != nil {
		job := jobs.Job{
			Type: jobs.JobTypeAlertEmail,
			Payload: map[string]interface{}{
				"alert_id":   alert.ID,
				"teacher_id": alert.TeacherID,
				"email":      teacher.Email,
				"title":      alert.Title,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("alert email enqueue failed", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}

	return nil
}

// CreateBulk creates each alert best-effort and returns how many succeeded.
// A failing item is logged and skipped; it never aborts the batch.
func (s *AlertService) CreateBulk(ctx context.Context, alerts []*models.Alert) int {
	created := 0
	for _, alert := range alerts {
		if err := s.Create(ctx, alert); err != nil {
			s.logger.Warn("bulk alert create failed",
				zap.String("teacher_id", alert.TeacherID),
				zap.String("type", string(alert.Type)),
				zap.Error(err))
			continue
		}
		created++
	}
	return created
}

// Get fetches one alert.
func (s *AlertService) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.FromError(err)
	}
	return alert, nil
}

// List returns alerts matching the filter.
func (s *AlertService) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	alerts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return alerts, nil
}

// Acknowledge moves a NEW alert to ACKNOWLEDGED. Acknowledging twice is
// idempotent; a resolved alert can no longer change.
func (s *AlertService) Acknowledge(ctx context.Context, id, actorID string) (*models.Alert, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Resolved {
		return nil, appErrors.ErrAlertResolved
	}
	if alert.Acknowledged {
		return alert, nil
	}

	now := time.Now().UTC()
	if err := s.repo.MarkAcknowledged(ctx, id, actorID, now); err != nil {
		return nil, appErrors.FromError(err)
	}
	alert.Acknowledged = true
	alert.AcknowledgedBy = &actorID
	alert.AcknowledgedAt = &now

	s.notifyLifecycle(ctx, alert, models.MsgAlertAcknowledged)
	return alert, nil
}

// Resolve moves an alert to RESOLVED from either NEW or ACKNOWLEDGED.
// Resolved alerts are immutable, so resolving twice is a conflict.
func (s *AlertService) Resolve(ctx context.Context, id, actorID string) (*models.Alert, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Resolved {
		return nil, appErrors.ErrAlertResolved
	}

	now := time.Now().UTC()
	if err := s.repo.MarkResolved(ctx, id, actorID, now); err != nil {
		return nil, appErrors.FromError(err)
	}
	alert.Resolved = true
	alert.ResolvedBy = &actorID
	alert.ResolvedAt = &now

	if actorID == models.SystemAutoResolveActor {
		s.metrics.AlertAutoResolved()
	}
	s.notifyLifecycle(ctx, alert, models.MsgAlertResolved)
	return alert, nil
}

// AutoResolve scans a teacher's active alerts and resolves every one whose
// triggering condition has cleared in the given summary, stamping the system
// actor. Returns how many alerts were resolved.
func (s *AlertService) AutoResolve(ctx context.Context, summary *models.WorkloadSummary, policy models.WorkloadPolicy, clearOverworkPct, clearWellness float64, lateEveningThreshold int) int {
	active, err := s.repo.ListActiveByTeacher(ctx, summary.TeacherID)
	if err != nil {
		s.logger.Warn("auto-resolve listing failed", zap.String("teacher_id", summary.TeacherID), zap.Error(err))
		return 0
	}

	resolved := 0
	for i := range active {
		alert := &active[i]
		if !s.conditionCleared(alert.Type, summary, policy, clearOverworkPct, clearWellness, lateEveningThreshold) {
			continue
		}
		if _, err := s.Resolve(ctx, alert.ID, models.SystemAutoResolveActor); err != nil {
			s.logger.Warn("auto-resolve failed",
				zap.String("alert_id", alert.ID),
				zap.String("teacher_id", summary.TeacherID),
				zap.Error(err))
			continue
		}
		resolved++
	}
	if resolved > 0 {
		s.logger.Info("alerts auto-resolved",
			zap.String("teacher_id", summary.TeacherID),
			zap.Int("count", resolved))
	}
	return resolved
}

// conditionCleared applies the per-type clearing rule. Clearing thresholds sit
// below the raise thresholds so alerts do not flap around a boundary.
func (s *AlertService) conditionCleared(alertType models.AlertType, summary *models.WorkloadSummary, policy models.WorkloadPolicy, clearOverworkPct, clearWellness float64, lateEveningThreshold int) bool {
	switch alertType {
	case models.AlertOverworkWarning:
		return summary.WorkloadPercentage < clearOverworkPct
	case models.AlertBurnoutRisk:
		return summary.Snapshot.WellnessScore > clearWellness
	case models.AlertConsecutivePeriods:
		return summary.Snapshot.ConsecutivePeriodsMax <= policy.MaxConsecutivePeriods
	case models.AlertWellnessDecline:
		return summary.Snapshot.WellnessScore > clearWellness
	case models.AlertLateEveningPattern:
		return summary.LateEveningCount <= lateEveningThreshold
	default:
		return false
	}
}

// Statistics aggregates a school's alert activity over a window.
func (s *AlertService) Statistics(ctx context.Context, schoolID string, from, to time.Time) (*models.AlertStatistics, error) {
	total, acknowledged, resolvedCount, err := s.repo.StateCounts(ctx, schoolID, from, to)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	bySeverity, err := s.repo.SeverityCounts(ctx, schoolID, from, to)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	byType, err := s.repo.TypeCounts(ctx, schoolID, from, to)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	stats := &models.AlertStatistics{
		SchoolID:     schoolID,
		From:         from,
		To:           to,
		Total:        total,
		Active:       total - resolvedCount,
		Acknowledged: acknowledged,
		Resolved:     resolvedCount,
		BySeverity:   bySeverity,
		ByType:       byType,
	}
	if total > 0 {
		stats.ResolutionRate = float64(resolvedCount) / float64(total) * 100
	}
	return stats, nil
}

// Trends returns per-day alert activity for the last N days.
func (s *AlertService) Trends(ctx context.Context, schoolID string, days int) ([]models.AlertTrendPoint, error) {
	points, err := s.repo.DailyTrend(ctx, schoolID, days)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return points, nil
}

// notifyLifecycle pushes a lifecycle transition to the teacher and the
// school's admin roles.
func (s *AlertService) notifyLifecycle(ctx context.Context, alert *models.Alert, msgType string) {
	notification := models.Notification{Type: msgType, Data: alert}
	if teacher, err := s.teachers.FindByID(ctx, alert.TeacherID); err == nil {
		s.notify(teacher.UserID, notification)
	}
	s.notifyRole(alert.SchoolID, notification)
}

func (s *AlertService) notify(userID string, notification models.Notification) {
	if s.notifier == nil || userID == "" {
		return
	}
	if s.notifier.SendToUser(userID, notification) {
		s.metrics.NotificationSent(notification.Type)
	}
}

func (s *AlertService) notifyRole(schoolID string, notification models.Notification) {
	if s.notifier == nil || schoolID == "" {
		return
	}
	sent := s.notifier.SendToRole(schoolID, models.AdminRoles, notification)
	for i := 0; i < sent; i++ {
		s.metrics.NotificationSent(notification.Type)
	}
}

// BuildAlert assembles an alert with a generated title and message for the
// given type.
func BuildAlert(teacher *models.Teacher, alertType models.AlertType, severity models.AlertSeverity, summary *models.WorkloadSummary, recommendations models.Recommendations) *models.Alert {
	title, message := alertText(alertType, teacher, summary)
	return &models.Alert{
		TeacherID:       teacher.ID,
		SchoolID:        teacher.SchoolID,
		Type:            alertType,
		Severity:        severity,
		Title:           title,
		Message:         message,
		Recommendations: recommendations,
	}
}

func alertText(alertType models.AlertType, teacher *models.Teacher, summary *models.WorkloadSummary) (string, string) {
	name := teacher.FullName
	if name == "" {
		name = teacher.ID
	}
	switch alertType {
	case models.AlertOverworkWarning:
		return "Workload exceeds safe limits",
			fmt.Sprintf("%s is scheduled at %.1f%% of the weekly policy maximum.", name, summary.WorkloadPercentage)
	case models.AlertBurnoutRisk:
		return "Critical burnout risk",
			fmt.Sprintf("%s has a wellness score of %.0f and needs immediate attention.", name, summary.Snapshot.WellnessScore)
	case models.AlertConsecutivePeriods:
		return "Too many consecutive periods",
			fmt.Sprintf("%s teaches up to %d periods back to back.", name, summary.Snapshot.ConsecutivePeriodsMax)
	case models.AlertWellnessDecline:
		return "Wellness declining week over week",
			fmt.Sprintf("%s's wellness score dropped noticeably since last week (now %.0f).", name, summary.Snapshot.WellnessScore)
	case models.AlertLateEveningPattern:
		return "Frequent late-evening classes",
			fmt.Sprintf("%s has %d late-evening classes scheduled this week.", name, summary.LateEveningCount)
	default:
		return "Wellness alert", fmt.Sprintf("A wellness condition was detected for %s.", name)
	}
}
