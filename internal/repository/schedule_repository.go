package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edupulse/wellness-api/internal/models"
)

// ScheduleRepository reads timetable assignments and workload policies. Both
// are owned by the scheduling side of the system; this engine only reads.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// WeekByTeacher returns every schedule entry of the teacher's current week,
// ordered by day then start time. Preparation minutes default at read time
// via COALESCE so the calculator always sees a usable value.
func (r *ScheduleRepository) WeekByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT se.id, se.teacher_id, se.subject_id, se.day_of_week, se.start_time, se.end_time,
			COALESCE(s.prep_minutes, 0) AS prep_minutes, se.room, se.created_at
		FROM schedule_entries se
		LEFT JOIN subjects s ON s.id = se.subject_id
		WHERE se.teacher_id = $1
		ORDER BY se.day_of_week ASC, se.start_time ASC`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// PolicyByTeacher returns the teacher's workload policy. A missing row falls
// back to the documented default policy rather than an error.
func (r *ScheduleRepository) PolicyByTeacher(ctx context.Context, teacherID string) (models.WorkloadPolicy, error) {
	const query = `SELECT teacher_id, max_periods_per_day, max_periods_per_week, max_consecutive_periods, min_break_minutes
		FROM workload_policies WHERE teacher_id = $1`
	var policy models.WorkloadPolicy
	if err := r.db.GetContext(ctx, &policy, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultWorkloadPolicy(teacherID), nil
		}
		return models.WorkloadPolicy{}, fmt.Errorf("load workload policy: %w", err)
	}
	return policy, nil
}
