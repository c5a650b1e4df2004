package models

import "time"

// ScheduleEntry is one assigned teaching slot for a teacher. Day-of-week is
// ISO numbering (1 = Monday .. 7 = Sunday); times are "HH:MM" wall-clock.
type ScheduleEntry struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	PrepMinutes int       `db:"prep_minutes" json:"prep_minutes"`
	Room        string    `db:"room" json:"room"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WorkloadPolicy bounds a teacher's acceptable schedule load. Owned by the
// data store and treated as read-only input here.
type WorkloadPolicy struct {
	TeacherID             string `db:"teacher_id" json:"teacher_id"`
	MaxPeriodsPerDay      int    `db:"max_periods_per_day" json:"max_periods_per_day"`
	MaxPeriodsPerWeek     int    `db:"max_periods_per_week" json:"max_periods_per_week"`
	MaxConsecutivePeriods int    `db:"max_consecutive_periods" json:"max_consecutive_periods"`
	MinBreakMinutes       int    `db:"min_break_minutes" json:"min_break_minutes"`
}

// DefaultWorkloadPolicy is applied when a teacher has no stored policy row.
func DefaultWorkloadPolicy(teacherID string) WorkloadPolicy {
	return WorkloadPolicy{
		TeacherID:             teacherID,
		MaxPeriodsPerDay:      7,
		MaxPeriodsPerWeek:     30,
		MaxConsecutivePeriods: 3,
		MinBreakMinutes:       15,
	}
}
