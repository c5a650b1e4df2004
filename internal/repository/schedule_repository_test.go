package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryWeekByTeacher(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "subject_id", "day_of_week", "start_time", "end_time", "prep_minutes", "room", "created_at"}).
		AddRow("e1", "t-1", "sub-1", 1, "08:00", "08:45", 15, "A101", now).
		AddRow("e2", "t-1", "sub-2", 1, "09:00", "09:45", 0, "A102", now)
	mock.ExpectQuery("SELECT .+ FROM schedule_entries se").
		WithArgs("t-1").
		WillReturnRows(rows)

	entries, err := repo.WeekByTeacher(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "08:00", entries[0].StartTime)
	assert.Equal(t, 15, entries[0].PrepMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryPolicyFallsBackToDefault(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("SELECT .+ FROM workload_policies").
		WithArgs("t-1").
		WillReturnError(sql.ErrNoRows)

	policy, err := repo.PolicyByTeacher(context.Background(), "t-1")
	require.NoError(t, err, "a missing policy row is not an error")
	assert.Equal(t, models.DefaultWorkloadPolicy("t-1"), policy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryPolicyByTeacher(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "max_periods_per_day", "max_periods_per_week", "max_consecutive_periods", "min_break_minutes"}).
		AddRow("t-1", 7, 32, 4, 10)
	mock.ExpectQuery("SELECT .+ FROM workload_policies").
		WithArgs("t-1").
		WillReturnRows(rows)

	policy, err := repo.PolicyByTeacher(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 32, policy.MaxPeriodsPerWeek)
	assert.Equal(t, 4, policy.MaxConsecutivePeriods)
	assert.NoError(t, mock.ExpectationsWereMet())
}
