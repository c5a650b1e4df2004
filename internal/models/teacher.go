package models

import "time"

// Teacher is the instructor record this engine monitors. UserID links the
// teacher to their login identity for realtime delivery.
type Teacher struct {
	ID         string           `db:"id" json:"id"`
	UserID     string           `db:"user_id" json:"user_id"`
	SchoolID   string           `db:"school_id" json:"school_id"`
	Email      string           `db:"email" json:"email"`
	FullName   string           `db:"full_name" json:"full_name"`
	Department string           `db:"department" json:"department"`
	RiskLevel  BurnoutRiskLevel `db:"burnout_risk_level" json:"burnout_risk_level"`
	Active     bool             `db:"active" json:"active"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`

	// Subjects is decoded from a stored JSON blob. SubjectsDefaulted is set
	// when the blob failed to parse and the empty list was substituted.
	Subjects          []string `db:"-" json:"subjects"`
	SubjectsDefaulted bool     `db:"-" json:"-"`
}

// School is the organisational scope monitoring runs iterate over.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
