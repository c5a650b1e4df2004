package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
)

// wellnessTeacherRepository is the teacher surface WellnessService depends on.
type wellnessTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
	UpdateRiskLevel(ctx context.Context, id string, level models.BurnoutRiskLevel) error
}

type wellnessScheduleRepository interface {
	WeekByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleEntry, error)
	PolicyByTeacher(ctx context.Context, teacherID string) (models.WorkloadPolicy, error)
}

type wellnessSnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *models.WellnessSnapshot) error
	FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.WellnessSnapshot, error)
	ListRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.WellnessSnapshot, error)
	AverageWellness(ctx context.Context, teacherID string, from, to time.Time) (float64, error)
}

// WellnessService computes and persists workload metrics: one teacher on
// demand, or a whole school in a monitoring pass.
type WellnessService struct {
	teachers   wellnessTeacherRepository
	schedules  wellnessScheduleRepository
	snapshots  wellnessSnapshotRepository
	calculator *WorkloadCalculator
	logger     *zap.Logger
}

func NewWellnessService(teachers wellnessTeacherRepository, schedules wellnessScheduleRepository, snapshots wellnessSnapshotRepository, calculator *WorkloadCalculator, logger *zap.Logger) *WellnessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WellnessService{
		teachers:   teachers,
		schedules:  schedules,
		snapshots:  snapshots,
		calculator: calculator,
		logger:     logger,
	}
}

// CalculateTeacherWorkload loads the teacher's current schedule and policy,
// computes the full workload summary for the date, persists the snapshot, and
// keeps the teacher's stored risk tier in sync with the result.
func (s *WellnessService) CalculateTeacherWorkload(ctx context.Context, teacherID string, date time.Time) (*models.WorkloadSummary, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.FromError(err)
	}

	entries, err := s.schedules.WeekByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	policy, err := s.schedules.PolicyByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	summary := s.calculator.Calculate(teacherID, date, entries, policy)

	if err := s.snapshots.Upsert(ctx, &summary.Snapshot); err != nil {
		return nil, appErrors.FromError(err)
	}

	if teacher.RiskLevel != summary.Risk {
		if err := s.teachers.UpdateRiskLevel(ctx, teacherID, summary.Risk); err != nil {
			s.logger.Warn("risk level update failed",
				zap.String("teacher_id", teacherID),
				zap.String("risk", string(summary.Risk)),
				zap.Error(err))
		}
	}

	return summary, nil
}

// TeacherSummaryResult pairs a teacher with their computed summary inside a
// school-wide pass.
type TeacherSummaryResult struct {
	Teacher models.Teacher
	Summary *models.WorkloadSummary
}

// MonitorAllTeachers computes workload for every active teacher of a school.
// A failing teacher is logged and skipped; the pass continues. The returned
// failed count covers skipped teachers.
func (s *WellnessService) MonitorAllTeachers(ctx context.Context, schoolID string, date time.Time) ([]TeacherSummaryResult, int, error) {
	teachers, err := s.teachers.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, 0, appErrors.FromError(err)
	}

	results := make([]TeacherSummaryResult, 0, len(teachers))
	failed := 0
	for _, teacher := range teachers {
		summary, err := s.CalculateTeacherWorkload(ctx, teacher.ID, date)
		if err != nil {
			failed++
			s.logger.Warn("teacher workload calculation failed",
				zap.String("teacher_id", teacher.ID),
				zap.String("school_id", schoolID),
				zap.Error(err))
			continue
		}
		results = append(results, TeacherSummaryResult{Teacher: teacher, Summary: summary})
	}
	return results, failed, nil
}

// SnapshotHistory returns a teacher's snapshots within the window.
func (s *WellnessService) SnapshotHistory(ctx context.Context, teacherID string, from, to time.Time) ([]models.WellnessSnapshot, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.FromError(err)
	}
	snapshots, err := s.snapshots.ListRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return snapshots, nil
}

// WeeklyAverage returns the mean wellness score over the 7 days ending at the
// given date. The ok result is false when no snapshots exist in the window.
func (s *WellnessService) WeeklyAverage(ctx context.Context, teacherID string, endingAt time.Time) (float64, bool, error) {
	from := endingAt.AddDate(0, 0, -6)
	avg, err := s.snapshots.AverageWellness(ctx, teacherID, from, endingAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, appErrors.FromError(err)
	}
	return avg, true, nil
}
