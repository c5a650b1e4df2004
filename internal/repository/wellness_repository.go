package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/wellness-api/internal/models"
)

// WellnessRepository manages persistence for wellness snapshots.
type WellnessRepository struct {
	db *sqlx.DB
}

// NewWellnessRepository constructs a WellnessRepository.
func NewWellnessRepository(db *sqlx.DB) *WellnessRepository {
	return &WellnessRepository{db: db}
}

// Upsert inserts or overwrites the snapshot for (teacher_id, metric_date).
// Re-running a pass for the same teacher and date never duplicates a row.
func (r *WellnessRepository) Upsert(ctx context.Context, snapshot *models.WellnessSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	snapshot.UpdatedAt = now
	snapshot.MetricDate = snapshot.MetricDate.UTC().Truncate(24 * time.Hour)

	const query = `INSERT INTO wellness_snapshots
		(id, teacher_id, metric_date, teaching_hours, prep_hours, total_work_hours, consecutive_periods_max, gaps_minutes, stress_score, wellness_score, created_at, updated_at)
		VALUES (:id, :teacher_id, :metric_date, :teaching_hours, :prep_hours, :total_work_hours, :consecutive_periods_max, :gaps_minutes, :stress_score, :wellness_score, :created_at, :updated_at)
		ON CONFLICT (teacher_id, metric_date) DO UPDATE SET
			teaching_hours = EXCLUDED.teaching_hours,
			prep_hours = EXCLUDED.prep_hours,
			total_work_hours = EXCLUDED.total_work_hours,
			consecutive_periods_max = EXCLUDED.consecutive_periods_max,
			gaps_minutes = EXCLUDED.gaps_minutes,
			stress_score = EXCLUDED.stress_score,
			wellness_score = EXCLUDED.wellness_score,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("upsert wellness snapshot: %w", err)
	}
	return nil
}

// FindByTeacherAndDate fetches the snapshot for one teacher and date.
func (r *WellnessRepository) FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.WellnessSnapshot, error) {
	const query = `SELECT id, teacher_id, metric_date, teaching_hours, prep_hours, total_work_hours, consecutive_periods_max, gaps_minutes, stress_score, wellness_score, created_at, updated_at
		FROM wellness_snapshots WHERE teacher_id = $1 AND metric_date = $2`
	var snapshot models.WellnessSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, teacherID, date.UTC().Truncate(24*time.Hour)); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListRange returns a teacher's snapshots within [from, to] ordered by date.
func (r *WellnessRepository) ListRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.WellnessSnapshot, error) {
	const query = `SELECT id, teacher_id, metric_date, teaching_hours, prep_hours, total_work_hours, consecutive_periods_max, gaps_minutes, stress_score, wellness_score, created_at, updated_at
		FROM wellness_snapshots WHERE teacher_id = $1 AND metric_date >= $2 AND metric_date <= $3 ORDER BY metric_date ASC`
	var snapshots []models.WellnessSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, teacherID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list wellness snapshots: %w", err)
	}
	return snapshots, nil
}

// AverageWellness returns the mean wellness score for a teacher in a range.
// sql.ErrNoRows is returned when no snapshots exist in the window.
func (r *WellnessRepository) AverageWellness(ctx context.Context, teacherID string, from, to time.Time) (float64, error) {
	const query = `SELECT AVG(wellness_score) FROM wellness_snapshots WHERE teacher_id = $1 AND metric_date >= $2 AND metric_date <= $3`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, teacherID, from.UTC(), to.UTC()); err != nil {
		return 0, fmt.Errorf("average wellness: %w", err)
	}
	if !avg.Valid {
		return 0, sql.ErrNoRows
	}
	return avg.Float64, nil
}

// SchoolAverages aggregates snapshots across a school for a range.
func (r *WellnessRepository) SchoolAverages(ctx context.Context, schoolID string, from, to time.Time) (*models.WellnessAverages, error) {
	const query = `SELECT
			COALESCE(AVG(ws.wellness_score), 0) AS avg_wellness,
			COALESCE(AVG(ws.stress_score), 0) AS avg_stress,
			COALESCE(AVG(ws.total_work_hours), 0) AS avg_total_hours,
			COALESCE(MIN(ws.wellness_score), 0) AS min_wellness,
			COUNT(*) AS snapshot_count,
			COUNT(DISTINCT ws.teacher_id) AS teacher_count,
			$1 AS group_key
		FROM wellness_snapshots ws
		JOIN teachers t ON t.id = ws.teacher_id
		WHERE t.school_id = $1 AND ws.metric_date >= $2 AND ws.metric_date <= $3`
	var out models.WellnessAverages
	if err := r.db.GetContext(ctx, &out, query, schoolID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("school wellness averages: %w", err)
	}
	return &out, nil
}

// DepartmentAverages aggregates snapshots per department within a school.
func (r *WellnessRepository) DepartmentAverages(ctx context.Context, schoolID string, from, to time.Time) ([]models.WellnessAverages, error) {
	const query = `SELECT
			t.department AS group_key,
			COUNT(DISTINCT ws.teacher_id) AS teacher_count,
			COALESCE(AVG(ws.wellness_score), 0) AS avg_wellness,
			COALESCE(AVG(ws.stress_score), 0) AS avg_stress,
			COALESCE(AVG(ws.total_work_hours), 0) AS avg_total_hours,
			COALESCE(MIN(ws.wellness_score), 0) AS min_wellness,
			COUNT(*) AS snapshot_count
		FROM wellness_snapshots ws
		JOIN teachers t ON t.id = ws.teacher_id
		WHERE t.school_id = $1 AND ws.metric_date >= $2 AND ws.metric_date <= $3
		GROUP BY t.department
		ORDER BY t.department ASC`
	var out []models.WellnessAverages
	if err := r.db.SelectContext(ctx, &out, query, schoolID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("department wellness averages: %w", err)
	}
	return out, nil
}

// TopRiskTeachers lists the lowest-scoring teachers of a school by their most
// recent snapshot.
func (r *WellnessRepository) TopRiskTeachers(ctx context.Context, schoolID string, limit int) ([]models.TeacherAtRisk, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT t.id AS teacher_id, t.full_name, t.department, t.burnout_risk_level, ws.wellness_score
		FROM teachers t
		JOIN LATERAL (
			SELECT wellness_score FROM wellness_snapshots
			WHERE teacher_id = t.id ORDER BY metric_date DESC LIMIT 1
		) ws ON TRUE
		WHERE t.school_id = $1 AND t.active = TRUE
		ORDER BY ws.wellness_score ASC
		LIMIT $2`
	var out []models.TeacherAtRisk
	if err := r.db.SelectContext(ctx, &out, query, schoolID, limit); err != nil {
		return nil, fmt.Errorf("top risk teachers: %w", err)
	}
	return out, nil
}
