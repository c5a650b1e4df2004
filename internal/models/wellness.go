package models

import "time"

// BurnoutRiskLevel is an ordered risk tier derived from a wellness snapshot.
// It is always recomputed from the snapshot, never edited by hand.
type BurnoutRiskLevel string

const (
	RiskLow      BurnoutRiskLevel = "LOW"
	RiskMedium   BurnoutRiskLevel = "MEDIUM"
	RiskHigh     BurnoutRiskLevel = "HIGH"
	RiskCritical BurnoutRiskLevel = "CRITICAL"
)

// Rank orders risk levels from LOW (0) to CRITICAL (3). Unknown values rank
// below LOW so they never mask a real tier.
func (r BurnoutRiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// Elevated reports whether the tier warrants the frequent monitoring cadence.
func (r BurnoutRiskLevel) Elevated() bool {
	return r.Rank() >= RiskHigh.Rank()
}

// WellnessSnapshot is the persisted per-teacher, per-date metric row.
// (teacher_id, metric_date) is a unique composite key with upsert semantics.
type WellnessSnapshot struct {
	ID                    string    `db:"id" json:"id"`
	TeacherID             string    `db:"teacher_id" json:"teacher_id"`
	MetricDate            time.Time `db:"metric_date" json:"metric_date"`
	TeachingHours         float64   `db:"teaching_hours" json:"teaching_hours"`
	PrepHours             float64   `db:"prep_hours" json:"prep_hours"`
	TotalWorkHours        float64   `db:"total_work_hours" json:"total_work_hours"`
	ConsecutivePeriodsMax int       `db:"consecutive_periods_max" json:"consecutive_periods_max"`
	GapsMinutes           int       `db:"gaps_minutes" json:"gaps_minutes"`
	StressScore           float64   `db:"stress_score" json:"stress_score"`
	WellnessScore         float64   `db:"wellness_score" json:"wellness_score"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// StressIndicators are the weighted components of the overall stress score,
// each in [0,100].
type StressIndicators struct {
	Overwork           float64 `json:"overwork"`
	ConsecutivePeriods float64 `json:"consecutive_periods"`
	Gaps               float64 `json:"gaps"`
	Imbalance          float64 `json:"imbalance"`
}

// DailyLoad summarises one weekday of a teacher's schedule.
type DailyLoad struct {
	DayOfWeek      int     `json:"day_of_week"`
	Periods        int     `json:"periods"`
	TeachingHours  float64 `json:"teaching_hours"`
	PrepHours      float64 `json:"prep_hours"`
	ConsecutiveMax int     `json:"consecutive_max"`
	GapMinutes     int     `json:"gap_minutes"`
	LateEvening    int     `json:"late_evening"`
}

// WorkloadSummary is the full calculator output for one teacher and date:
// the snapshot to persist plus the derived figures threshold policy needs.
type WorkloadSummary struct {
	TeacherID          string           `json:"teacher_id"`
	MetricDate         time.Time        `json:"metric_date"`
	Snapshot           WellnessSnapshot `json:"snapshot"`
	Risk               BurnoutRiskLevel `json:"risk"`
	TotalPeriods       int              `json:"total_periods"`
	WorkloadPercentage float64          `json:"workload_percentage"`
	Indicators         StressIndicators `json:"indicators"`
	Daily              []DailyLoad      `json:"daily"`
	LateEveningCount   int              `json:"late_evening_count"`
	// SkippedEntries counts schedule slots dropped because their stored
	// times failed to parse; the rest of the summary is still valid.
	SkippedEntries int `json:"skipped_entries,omitempty"`
}
