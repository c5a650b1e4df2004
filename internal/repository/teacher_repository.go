package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
)

const teacherColumns = `id, user_id, school_id, email, full_name, department, burnout_risk_level, subjects, active, created_at, updated_at`

type teacherRow struct {
	models.Teacher
	SubjectsRaw []byte `db:"subjects"`
}

// TeacherRepository reads teacher records and writes the stored risk tier.
type TeacherRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB, logger *zap.Logger) *TeacherRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherRepository{db: db, logger: logger}
}

// FindByID fetches one teacher.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var row teacherRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	teacher := r.decode(row)
	return &teacher, nil
}

// FindByUserID fetches the teacher record owned by a login identity. Teachers
// authenticate with a user id that is distinct from their teacher record id.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE user_id = $1", teacherColumns)
	var row teacherRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, err
	}
	teacher := r.decode(row)
	return &teacher, nil
}

// ListBySchool returns every active teacher of a school.
func (r *TeacherRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE school_id = $1 AND active = TRUE ORDER BY full_name ASC", teacherColumns)
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return r.decodeAll(rows), nil
}

// ListAtRisk returns the school's active teachers whose stored risk tier is
// HIGH or CRITICAL. The frequent monitoring cadence only revisits these.
func (r *TeacherRepository) ListAtRisk(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE school_id = $1 AND active = TRUE AND burnout_risk_level IN ('HIGH', 'CRITICAL') ORDER BY full_name ASC", teacherColumns)
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list at-risk teachers: %w", err)
	}
	return r.decodeAll(rows), nil
}

// UpdateRiskLevel refreshes the stored burnout risk tier.
func (r *TeacherRepository) UpdateRiskLevel(ctx context.Context, id string, level models.BurnoutRiskLevel) error {
	const query = `UPDATE teachers SET burnout_risk_level = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, level, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher risk level: %w", err)
	}
	return nil
}

func (r *TeacherRepository) decodeAll(rows []teacherRow) []models.Teacher {
	teachers := make([]models.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, r.decode(row))
	}
	return teachers
}

// decode parses the stored subjects blob. A malformed blob yields the empty
// list with SubjectsDefaulted set, never a row-level error.
func (r *TeacherRepository) decode(row teacherRow) models.Teacher {
	teacher := row.Teacher
	teacher.Subjects = []string{}
	if len(row.SubjectsRaw) == 0 {
		return teacher
	}
	var subjects []string
	if err := json.Unmarshal(row.SubjectsRaw, &subjects); err != nil {
		teacher.SubjectsDefaulted = true
		r.logger.Warn("malformed subjects blob, defaulting to empty list",
			zap.String("teacher_id", teacher.ID), zap.Error(err))
		return teacher
	}
	teacher.Subjects = subjects
	return teacher
}
