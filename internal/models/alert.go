package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlertType identifies the workload condition that raised an alert.
type AlertType string

const (
	AlertOverworkWarning    AlertType = "OVERWORK_WARNING"
	AlertBurnoutRisk        AlertType = "BURNOUT_RISK"
	AlertConsecutivePeriods AlertType = "CONSECUTIVE_PERIODS"
	AlertWellnessDecline    AlertType = "WELLNESS_DECLINE"
	AlertLateEveningPattern AlertType = "LATE_EVENING_PATTERN"
)

// AlertSeverity grades an alert independently of its lifecycle state.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertState is derived from the acknowledged/resolved flags.
type AlertState string

const (
	AlertStateNew          AlertState = "NEW"
	AlertStateAcknowledged AlertState = "ACKNOWLEDGED"
	AlertStateResolved     AlertState = "RESOLVED"
)

// SystemAutoResolveActor stamps resolutions performed by the monitor itself.
const SystemAutoResolveActor = "SYSTEM_AUTO_RESOLVE"

// Recommendation is one structured suggested action attached to an alert.
type Recommendation struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// Recommendations is stored as a jsonb column.
type Recommendations []Recommendation

// Value implements driver.Valuer for jsonb persistence.
func (r Recommendations) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recommendations: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner. A malformed stored blob decodes to the empty
// list rather than failing the row read.
func (r *Recommendations) Scan(src interface{}) error {
	if src == nil {
		*r = Recommendations{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*r = Recommendations{}
		return nil
	}
	var out Recommendations
	if err := json.Unmarshal(raw, &out); err != nil {
		*r = Recommendations{}
		return nil
	}
	*r = out
	return nil
}

// Alert is one workload condition raised for a teacher. Once resolved it is
// immutable.
type Alert struct {
	ID              string          `db:"id" json:"id"`
	TeacherID       string          `db:"teacher_id" json:"teacher_id"`
	SchoolID        string          `db:"school_id" json:"school_id"`
	Type            AlertType       `db:"alert_type" json:"alert_type"`
	Severity        AlertSeverity   `db:"severity" json:"severity"`
	Title           string          `db:"title" json:"title"`
	Message         string          `db:"message" json:"message"`
	Recommendations Recommendations `db:"recommendations" json:"recommendations"`
	Acknowledged    bool            `db:"acknowledged" json:"acknowledged"`
	AcknowledgedBy  *string         `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time      `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	Resolved        bool            `db:"resolved" json:"resolved"`
	ResolvedBy      *string         `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// State derives the lifecycle state from the flags.
func (a *Alert) State() AlertState {
	switch {
	case a.Resolved:
		return AlertStateResolved
	case a.Acknowledged:
		return AlertStateAcknowledged
	default:
		return AlertStateNew
	}
}

// AlertFilter captures query options for listing alerts.
type AlertFilter struct {
	TeacherID       string
	SchoolID        string
	Severity        *AlertSeverity
	Type            *AlertType
	IncludeResolved bool
}

// AlertStatistics aggregates alert counts for a school over a time range.
type AlertStatistics struct {
	SchoolID       string         `json:"school_id"`
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	Acknowledged   int            `json:"acknowledged"`
	Resolved       int            `json:"resolved"`
	BySeverity     map[string]int `json:"by_severity"`
	ByType         map[string]int `json:"by_type"`
	ResolutionRate float64        `json:"resolution_rate"`
}

// AlertTrendPoint is one day of alert activity.
type AlertTrendPoint struct {
	Date     time.Time `db:"day" json:"date"`
	Created  int       `db:"created" json:"created"`
	Resolved int       `db:"resolved" json:"resolved"`
	Critical int       `db:"critical" json:"critical"`
}
