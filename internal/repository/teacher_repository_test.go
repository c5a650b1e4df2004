package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
)

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func teacherMockRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "school_id", "email", "full_name", "department", "burnout_risk_level", "subjects", "active", "created_at", "updated_at"})
}

func TestTeacherRepositoryFindByIDDecodesSubjects(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db, nil)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM teachers WHERE id").
		WithArgs("t-1").
		WillReturnRows(teacherMockRows().
			AddRow("t-1", "u-1", "s-1", "a@example.com", "Alex Rivera", "Science", "LOW", `["Physics","Chemistry"]`, true, now, now))

	teacher, err := repo.FindByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Physics", "Chemistry"}, teacher.Subjects)
	assert.False(t, teacher.SubjectsDefaulted)
}

func TestTeacherRepositoryFindByUserID(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db, nil)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM teachers WHERE user_id").
		WithArgs("u-1").
		WillReturnRows(teacherMockRows().
			AddRow("t-1", "u-1", "s-1", "a@example.com", "Alex Rivera", "Science", "LOW", nil, true, now, now))

	teacher, err := repo.FindByUserID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", teacher.ID)
	assert.Equal(t, "u-1", teacher.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryMalformedSubjectsBlob(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db, nil)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM teachers WHERE id").
		WithArgs("t-1").
		WillReturnRows(teacherMockRows().
			AddRow("t-1", "u-1", "s-1", "a@example.com", "Alex Rivera", "Science", "LOW", `{broken`, true, now, now))

	teacher, err := repo.FindByID(context.Background(), "t-1")
	require.NoError(t, err, "a malformed subjects blob never fails the row read")
	assert.Empty(t, teacher.Subjects)
	assert.True(t, teacher.SubjectsDefaulted)
}

func TestTeacherRepositoryListAtRisk(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db, nil)

	now := time.Now().UTC()
	mock.ExpectQuery(`burnout_risk_level IN \('HIGH', 'CRITICAL'\)`).
		WithArgs("s-1").
		WillReturnRows(teacherMockRows().
			AddRow("t-2", "u-2", "s-1", "b@example.com", "Sam Lee", "Mathematics", "HIGH", nil, true, now, now))

	teachers, err := repo.ListAtRisk(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, models.RiskHigh, teachers[0].RiskLevel)
	assert.Empty(t, teachers[0].Subjects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateRiskLevel(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db, nil)

	mock.ExpectExec("UPDATE teachers SET burnout_risk_level").
		WithArgs("t-1", "CRITICAL", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRiskLevel(context.Background(), "t-1", models.RiskCritical))
	assert.NoError(t, mock.ExpectationsWereMet())
}
