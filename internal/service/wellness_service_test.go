package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
)

type fakeWellnessTeachers struct {
	teacher     *models.Teacher
	riskUpdates []models.BurnoutRiskLevel
}

func (f *fakeWellnessTeachers) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if f.teacher == nil || f.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.teacher, nil
}

func (f *fakeWellnessTeachers) ListBySchool(context.Context, string) ([]models.Teacher, error) {
	if f.teacher == nil {
		return nil, nil
	}
	return []models.Teacher{*f.teacher}, nil
}

func (f *fakeWellnessTeachers) UpdateRiskLevel(_ context.Context, _ string, level models.BurnoutRiskLevel) error {
	f.riskUpdates = append(f.riskUpdates, level)
	return nil
}

type fakeWellnessSchedules struct {
	entries []models.ScheduleEntry
}

func (f *fakeWellnessSchedules) WeekByTeacher(context.Context, string) ([]models.ScheduleEntry, error) {
	return f.entries, nil
}

func (f *fakeWellnessSchedules) PolicyByTeacher(_ context.Context, teacherID string) (models.WorkloadPolicy, error) {
	return models.DefaultWorkloadPolicy(teacherID), nil
}

type fakeWellnessSnapshots struct {
	upserts []models.WellnessSnapshot
	ranged  []models.WellnessSnapshot
	avg     float64
	avgErr  error
}

func (f *fakeWellnessSnapshots) Upsert(_ context.Context, snapshot *models.WellnessSnapshot) error {
	f.upserts = append(f.upserts, *snapshot)
	return nil
}

func (f *fakeWellnessSnapshots) FindByTeacherAndDate(context.Context, string, time.Time) (*models.WellnessSnapshot, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeWellnessSnapshots) ListRange(context.Context, string, time.Time, time.Time) ([]models.WellnessSnapshot, error) {
	return f.ranged, nil
}

func (f *fakeWellnessSnapshots) AverageWellness(context.Context, string, time.Time, time.Time) (float64, error) {
	if f.avgErr != nil {
		return 0, f.avgErr
	}
	return f.avg, nil
}

func newWellnessServiceForTest(teacher *models.Teacher, entries []models.ScheduleEntry) (*WellnessService, *fakeWellnessTeachers, *fakeWellnessSnapshots) {
	teachers := &fakeWellnessTeachers{teacher: teacher}
	snapshots := &fakeWellnessSnapshots{}
	svc := NewWellnessService(teachers, &fakeWellnessSchedules{entries: entries}, snapshots,
		NewWorkloadCalculator(testWellnessConfig(), nil), nil)
	return svc, teachers, snapshots
}

func TestCalculateTeacherWorkloadPersistsSnapshot(t *testing.T) {
	teacher := testTeacher()
	teacher.RiskLevel = models.RiskMedium
	svc, teachers, snapshots := newWellnessServiceForTest(teacher, []models.ScheduleEntry{
		entry(1, "08:00", "08:45"),
	})

	summary, err := svc.CalculateTeacherWorkload(context.Background(), "t-1", time.Now())
	require.NoError(t, err)

	require.Len(t, snapshots.upserts, 1)
	assert.Equal(t, summary.Snapshot.WellnessScore, snapshots.upserts[0].WellnessScore)

	// Light schedule drops the stored tier to the recomputed one.
	require.Len(t, teachers.riskUpdates, 1)
	assert.Equal(t, summary.Risk, teachers.riskUpdates[0])
}

func TestCalculateTeacherWorkloadUnknownTeacher(t *testing.T) {
	svc, _, _ := newWellnessServiceForTest(nil, nil)

	_, err := svc.CalculateTeacherWorkload(context.Background(), "ghost", time.Now())

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCalculateTeacherWorkloadSkipsRiskUpdateWhenUnchanged(t *testing.T) {
	teacher := testTeacher()
	teacher.RiskLevel = models.RiskLow
	svc, teachers, _ := newWellnessServiceForTest(teacher, nil)

	_, err := svc.CalculateTeacherWorkload(context.Background(), "t-1", time.Now())
	require.NoError(t, err)

	assert.Empty(t, teachers.riskUpdates, "empty schedule keeps LOW risk, no write needed")
}

func TestWeeklyAverageNoHistory(t *testing.T) {
	svc, _, _ := newWellnessServiceForTest(testTeacher(), nil)
	snapshots := &fakeWellnessSnapshots{avgErr: sql.ErrNoRows}
	svc.snapshots = snapshots

	_, ok, err := svc.WeeklyAverage(context.Background(), "t-1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMonitorAllTeachersCollectsSummaries(t *testing.T) {
	svc, _, snapshots := newWellnessServiceForTest(testTeacher(), []models.ScheduleEntry{
		entry(1, "09:00", "09:45"),
	})

	results, failed, err := svc.MonitorAllTeachers(context.Background(), "s-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, failed)
	require.Len(t, results, 1)
	assert.Equal(t, "t-1", results[0].Summary.TeacherID)
	assert.Len(t, snapshots.upserts, 1)
}
