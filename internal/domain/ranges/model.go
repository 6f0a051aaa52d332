// Package ranges resolves the applicable normal/reference range for a
// metric: user-specific custom ranges first, then profile-adjusted catalog
// defaults, then the raw catalog default.
package ranges

import "time"

// CustomRange is a per-user override of a metric's reference range, with an
// optional validity interval. Nil valid_from means "since forever", nil
// valid_until means open-ended.
type CustomRange struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	MetricName       string     `json:"metric_name"`
	MinValue         float64    `json:"min_value"`
	MaxValue         float64    `json:"max_value"`
	Units            string     `json:"units"`
	MedicalCondition string     `json:"medical_condition"`
	ConditionDetails string     `json:"condition_details"`
	Notes            string     `json:"notes"`
	ValidFrom        *time.Time `json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Contains reports whether the validity interval covers the given day.
func (r *CustomRange) Contains(day time.Time) bool {
	if r.ValidFrom != nil && day.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && day.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Profile is the slice of the user record the range rules care about.
type Profile struct {
	Sex                      string
	DateOfBirth              *time.Time
	HasCardiovascularDisease bool
}

// Age returns the profile's age in whole years at asOf, or -1 when the date
// of birth is unknown.
func (p *Profile) Age(asOf time.Time) int {
	if p == nil || p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	age := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		age--
	}
	return age
}

// Range sources, most specific first.
const (
	SourceCustom  = "custom"
	SourceProfile = "profile"
	SourceDefault = "default"
)

// ResolvedRange is the answer to "what is normal for this user, this
// metric, this date".
type ResolvedRange struct {
	MetricName string   `json:"metric_name"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Unit       string   `json:"unit"`
	Source     string   `json:"source"`
	Condition  string   `json:"condition,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}
