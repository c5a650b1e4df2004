package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/wellness-api/internal/models"
)

const alertColumns = `id, teacher_id, school_id, alert_type, severity, title, message, recommendations, acknowledged, acknowledged_by, acknowledged_at, resolved, resolved_by, resolved_at, created_at`

// AlertRepository manages persistence for wellness alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs an AlertRepository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert in the NEW state.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO alerts (id, teacher_id, school_id, alert_type, severity, title, message, recommendations, acknowledged, resolved, created_at)
		VALUES (:id, :teacher_id, :school_id, :alert_type, :severity, :title, :message, :recommendations, FALSE, FALSE, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// FindByID fetches an alert by ID.
func (r *AlertRepository) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE id = $1", alertColumns)
	var alert models.Alert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// List returns alerts matching the filter, newest first.
func (r *AlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	base := fmt.Sprintf("SELECT %s FROM alerts WHERE 1=1", alertColumns)
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Severity != nil {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)+1))
		args = append(args, *filter.Severity)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("alert_type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if !filter.IncludeResolved {
		conditions = append(conditions, "resolved = FALSE")
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var alerts []models.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// ListActiveByTeacher returns a teacher's unresolved alerts.
func (r *AlertRepository) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.Alert, error) {
	return r.List(ctx, models.AlertFilter{TeacherID: teacherID})
}

// MarkAcknowledged stamps the acknowledgement transition.
func (r *AlertRepository) MarkAcknowledged(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE alerts SET acknowledged = TRUE, acknowledged_by = $2, acknowledged_at = $3 WHERE id = $1 AND resolved = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, by, at.UTC()); err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	return nil
}

// MarkResolved stamps the resolution transition. Resolved rows are final.
func (r *AlertRepository) MarkResolved(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE alerts SET resolved = TRUE, resolved_by = $2, resolved_at = $3 WHERE id = $1 AND resolved = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, by, at.UTC()); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	return nil
}

// DeleteResolvedBefore purges resolved alerts older than the cutoff and
// returns how many rows were removed.
func (r *AlertRepository) DeleteResolvedBefore(ctx context.Context, schoolID string, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM alerts WHERE school_id = $1 AND resolved = TRUE AND resolved_at < $2`
	res, err := r.db.ExecContext(ctx, query, schoolID, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge resolved alerts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// SeverityCounts groups alert counts by severity for a school and range.
func (r *AlertRepository) SeverityCounts(ctx context.Context, schoolID string, from, to time.Time) (map[string]int, error) {
	const query = `SELECT severity AS key, COUNT(*) AS count FROM alerts
		WHERE school_id = $1 AND created_at >= $2 AND created_at <= $3 GROUP BY severity`
	return r.groupedCounts(ctx, query, schoolID, from, to)
}

// TypeCounts groups alert counts by type for a school and range.
func (r *AlertRepository) TypeCounts(ctx context.Context, schoolID string, from, to time.Time) (map[string]int, error) {
	const query = `SELECT alert_type AS key, COUNT(*) AS count FROM alerts
		WHERE school_id = $1 AND created_at >= $2 AND created_at <= $3 GROUP BY alert_type`
	return r.groupedCounts(ctx, query, schoolID, from, to)
}

func (r *AlertRepository) groupedCounts(ctx context.Context, query, schoolID string, from, to time.Time) (map[string]int, error) {
	var rows []countRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("grouped alert counts: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

// StateCounts returns total/acknowledged/resolved counts for a school range.
func (r *AlertRepository) StateCounts(ctx context.Context, schoolID string, from, to time.Time) (total, acknowledged, resolved int, err error) {
	const query = `SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE acknowledged) AS acknowledged,
			COUNT(*) FILTER (WHERE resolved) AS resolved
		FROM alerts WHERE school_id = $1 AND created_at >= $2 AND created_at <= $3`
	row := struct {
		Total        int `db:"total"`
		Acknowledged int `db:"acknowledged"`
		Resolved     int `db:"resolved"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, schoolID, from.UTC(), to.UTC()); err != nil {
		return 0, 0, 0, fmt.Errorf("alert state counts: %w", err)
	}
	return row.Total, row.Acknowledged, row.Resolved, nil
}

// DailyTrend returns per-day created/resolved/critical counts for the last
// N days.
func (r *AlertRepository) DailyTrend(ctx context.Context, schoolID string, days int) ([]models.AlertTrendPoint, error) {
	if days <= 0 {
		days = 7
	}
	from := time.Now().UTC().AddDate(0, 0, -days)
	const query = `SELECT DATE_TRUNC('day', created_at) AS day,
			COUNT(*) AS created,
			COUNT(*) FILTER (WHERE resolved) AS resolved,
			COUNT(*) FILTER (WHERE severity = 'CRITICAL') AS critical
		FROM alerts
		WHERE school_id = $1 AND created_at >= $2
		GROUP BY DATE_TRUNC('day', created_at)
		ORDER BY day ASC`
	var points []models.AlertTrendPoint
	if err := r.db.SelectContext(ctx, &points, query, schoolID, from); err != nil {
		return nil, fmt.Errorf("alert daily trend: %w", err)
	}
	return points, nil
}

// CountCreatedBetween counts alerts created in the window (weekly summary).
func (r *AlertRepository) CountCreatedBetween(ctx context.Context, schoolID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM alerts WHERE school_id = $1 AND created_at >= $2 AND created_at <= $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, from.UTC(), to.UTC()); err != nil {
		return 0, fmt.Errorf("count created alerts: %w", err)
	}
	return count, nil
}

// CountResolvedBetween counts alerts resolved in the window.
func (r *AlertRepository) CountResolvedBetween(ctx context.Context, schoolID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM alerts WHERE school_id = $1 AND resolved = TRUE AND resolved_at >= $2 AND resolved_at <= $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, from.UTC(), to.UTC()); err != nil {
		return 0, fmt.Errorf("count resolved alerts: %w", err)
	}
	return count, nil
}

// CountActive returns unresolved alert counts for a school, optionally only
// CRITICAL severity.
func (r *AlertRepository) CountActive(ctx context.Context, schoolID string, criticalOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE school_id = $1 AND resolved = FALSE`
	if criticalOnly {
		query += ` AND severity = 'CRITICAL'`
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID); err != nil {
		return 0, fmt.Errorf("count active alerts: %w", err)
	}
	return count, nil
}

// CountActiveByDepartment groups a school's unresolved alerts by department.
func (r *AlertRepository) CountActiveByDepartment(ctx context.Context, schoolID string) (map[string]int, error) {
	const query = `SELECT t.department AS key, COUNT(*) AS count
		FROM alerts a JOIN teachers t ON t.id = a.teacher_id
		WHERE a.school_id = $1 AND a.resolved = FALSE
		GROUP BY t.department`
	var rows []countRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("active alerts by department: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}
