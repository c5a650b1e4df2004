package models

import "time"

// TrendDirection labels the movement of an averaged wellness series.
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendStable    TrendDirection = "STABLE"
	TrendDeclining TrendDirection = "DECLINING"
)

// WellnessTrend compares the recent half of a window against the earlier half.
type WellnessTrend struct {
	RecentAverage  float64        `json:"recent_average"`
	EarlierAverage float64        `json:"earlier_average"`
	Delta          float64        `json:"delta"`
	Direction      TrendDirection `json:"direction"`
}

// WellnessAverages is a grouped aggregate over stored snapshots.
type WellnessAverages struct {
	GroupKey         string  `db:"group_key" json:"group_key"`
	TeacherCount     int     `db:"teacher_count" json:"teacher_count"`
	AvgWellness      float64 `db:"avg_wellness" json:"avg_wellness"`
	AvgStress        float64 `db:"avg_stress" json:"avg_stress"`
	AvgTotalHours    float64 `db:"avg_total_hours" json:"avg_total_hours"`
	SnapshotCount    int     `db:"snapshot_count" json:"snapshot_count"`
	MinWellnessScore float64 `db:"min_wellness" json:"min_wellness_score"`
}

// TeacherWellnessReport is the per-teacher analytics payload.
type TeacherWellnessReport struct {
	Teacher         Teacher            `json:"teacher"`
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	Snapshots       []WellnessSnapshot `json:"snapshots"`
	AverageWellness float64            `json:"average_wellness"`
	AverageStress   float64            `json:"average_stress"`
	CurrentRisk     BurnoutRiskLevel   `json:"current_risk"`
	Trend           WellnessTrend      `json:"trend"`
	ActiveAlerts    int                `json:"active_alerts"`
	ResolvedAlerts  int                `json:"resolved_alerts"`
	Recommendations []string           `json:"recommendations"`
}

// DepartmentWellness is one department's rollup within a school.
type DepartmentWellness struct {
	Department      string         `json:"department"`
	TeacherCount    int            `json:"teacher_count"`
	AverageWellness float64        `json:"average_wellness"`
	AverageStress   float64        `json:"average_stress"`
	RiskCounts      map[string]int `json:"risk_counts"`
	ActiveAlerts    int            `json:"active_alerts"`
	Recommendations []string       `json:"recommendations"`
}

// DepartmentWellnessOverview is the school-wide department rollup.
type DepartmentWellnessOverview struct {
	SchoolID    string               `json:"school_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Departments []DepartmentWellness `json:"departments"`
}

// SchoolWellnessDashboard is the aggregate payload for the admin dashboard.
type SchoolWellnessDashboard struct {
	SchoolID        string           `json:"school_id"`
	GeneratedAt     time.Time        `json:"generated_at"`
	TeacherCount    int              `json:"teacher_count"`
	AverageWellness float64          `json:"average_wellness"`
	AverageStress   float64          `json:"average_stress"`
	RiskCounts      map[string]int   `json:"risk_counts"`
	ActiveAlerts    int              `json:"active_alerts"`
	CriticalAlerts  int              `json:"critical_alerts"`
	Trend           WellnessTrend    `json:"trend"`
	TopRiskTeachers []TeacherAtRisk  `json:"top_risk_teachers"`
	Recommendations []string         `json:"recommendations"`
}

// TeacherAtRisk is a dashboard line item for an elevated-risk teacher.
type TeacherAtRisk struct {
	TeacherID     string           `db:"teacher_id" json:"teacher_id"`
	FullName      string           `db:"full_name" json:"full_name"`
	Department    string           `db:"department" json:"department"`
	RiskLevel     BurnoutRiskLevel `db:"burnout_risk_level" json:"risk_level"`
	WellnessScore float64          `db:"wellness_score" json:"wellness_score"`
}

// WeeklySchoolSummary is the administrator digest produced by the weekly pass.
type WeeklySchoolSummary struct {
	SchoolID        string         `json:"school_id"`
	WeekStart       time.Time      `json:"week_start"`
	WeekEnd         time.Time      `json:"week_end"`
	TeacherCount    int            `json:"teacher_count"`
	AverageWellness float64        `json:"average_wellness"`
	Trend           WellnessTrend  `json:"trend"`
	RiskCounts      map[string]int `json:"risk_counts"`
	AlertsCreated   int            `json:"alerts_created"`
	AlertsResolved  int            `json:"alerts_resolved"`
	DownloadToken   string         `json:"download_token,omitempty"`
	DownloadExpires *time.Time     `json:"download_expires,omitempty"`
}

// MonitorRunResult summarises one monitoring pass over a school.
type MonitorRunResult struct {
	SchoolID       string `json:"school_id"`
	TeachersSeen   int    `json:"teachers_seen"`
	TeachersFailed int    `json:"teachers_failed"`
	AlertsCreated  int    `json:"alerts_created"`
	AlertsResolved int    `json:"alerts_resolved"`
}
