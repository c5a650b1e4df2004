package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
)

func newWellnessRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWellnessRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newWellnessRepoMock(t)
	defer cleanup()
	repo := NewWellnessRepository(db)

	mock.ExpectExec("INSERT INTO wellness_snapshots").
		WithArgs(sqlmock.AnyArg(), "t-1", sqlmock.AnyArg(), 18.5, 2.0, 20.5, 3, 120, 45.0, 55.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &models.WellnessSnapshot{
		TeacherID:             "t-1",
		MetricDate:            time.Date(2026, 3, 9, 13, 30, 0, 0, time.UTC),
		TeachingHours:         18.5,
		PrepHours:             2.0,
		TotalWorkHours:        20.5,
		ConsecutivePeriodsMax: 3,
		GapsMinutes:           120,
		StressScore:           45.0,
		WellnessScore:         55.0,
	}
	require.NoError(t, repo.Upsert(context.Background(), snapshot))

	assert.NotEmpty(t, snapshot.ID, "upsert assigns an ID when missing")
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), snapshot.MetricDate,
		"metric date is truncated to the day")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWellnessRepositoryFindByTeacherAndDateNotFound(t *testing.T) {
	db, mock, cleanup := newWellnessRepoMock(t)
	defer cleanup()
	repo := NewWellnessRepository(db)

	mock.ExpectQuery("SELECT .+ FROM wellness_snapshots WHERE teacher_id").
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByTeacherAndDate(context.Background(), "t-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWellnessRepositoryAverageWellness(t *testing.T) {
	db, mock, cleanup := newWellnessRepoMock(t)
	defer cleanup()
	repo := NewWellnessRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT AVG(wellness_score) FROM wellness_snapshots WHERE teacher_id = $1 AND metric_date >= $2 AND metric_date <= $3")).
		WithArgs("t-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(72.5))

	avg, err := repo.AverageWellness(context.Background(), "t-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 72.5, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWellnessRepositoryAverageWellnessEmptyWindow(t *testing.T) {
	db, mock, cleanup := newWellnessRepoMock(t)
	defer cleanup()
	repo := NewWellnessRepository(db)

	// AVG over zero rows yields SQL NULL, surfaced as sql.ErrNoRows.
	mock.ExpectQuery("SELECT AVG").
		WithArgs("t-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	_, err := repo.AverageWellness(context.Background(), "t-1", time.Now().AddDate(0, 0, -7), time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWellnessRepositoryListRange(t *testing.T) {
	db, mock, cleanup := newWellnessRepoMock(t)
	defer cleanup()
	repo := NewWellnessRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "metric_date", "teaching_hours", "prep_hours", "total_work_hours", "consecutive_periods_max", "gaps_minutes", "stress_score", "wellness_score", "created_at", "updated_at"}).
		AddRow("w1", "t-1", now.AddDate(0, 0, -1), 4.0, 0.5, 4.5, 2, 30, 20.0, 80.0, now, now).
		AddRow("w2", "t-1", now, 5.0, 1.0, 6.0, 3, 45, 35.0, 65.0, now, now)
	mock.ExpectQuery("SELECT .+ FROM wellness_snapshots WHERE teacher_id .+ ORDER BY metric_date ASC").
		WithArgs("t-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	snapshots, err := repo.ListRange(context.Background(), "t-1", now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, 80.0, snapshots[0].WellnessScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWellnessRepositoryTopRiskTeachersDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newWellnessRepoMock(t)
	defer cleanup()
	repo := NewWellnessRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "full_name", "department", "burnout_risk_level", "wellness_score"}).
		AddRow("t-2", "Sam Lee", "Mathematics", "CRITICAL", 22.0)
	mock.ExpectQuery("SELECT t.id AS teacher_id").
		WithArgs("s-1", 5).
		WillReturnRows(rows)

	atRisk, err := repo.TopRiskTeachers(context.Background(), "s-1", 0)
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	assert.Equal(t, models.RiskCritical, atRisk[0].RiskLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}
