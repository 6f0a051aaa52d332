package ranges

import (
	"strings"
	"time"
)

// profileRule adjusts a default range for one metric based on the user's
// profile. Rules are pure and idempotent; they run in order and each may
// mark the result as profile-sourced.
type profileRule struct {
	name  string
	apply func(metricName string, p *Profile, asOf time.Time, r *ResolvedRange) bool
}

func f64(v float64) *float64 { return &v }

// profileRules run in declaration order. Later rules see earlier rules'
// adjustments.
var profileRules = []profileRule{
	{
		name: "hdl sex bands",
		apply: func(metricName string, p *Profile, _ time.Time, r *ResolvedRange) bool {
			if !nameIs(metricName, "HDL Cholesterol") {
				return false
			}
			switch {
			case strings.EqualFold(p.Sex, "Male"):
				r.Min, r.Max = f64(40), f64(60)
				return true
			case strings.EqualFold(p.Sex, "Female"):
				r.Min, r.Max = f64(50), f64(60)
				return true
			}
			return false
		},
	},
	{
		name: "ldl tightened for cardiovascular disease",
		apply: func(metricName string, p *Profile, _ time.Time, r *ResolvedRange) bool {
			if !nameIs(metricName, "LDL Cholesterol") || !p.HasCardiovascularDisease {
				return false
			}
			r.Max = f64(70)
			return true
		},
	},
	{
		name: "total cholesterol relaxed past 60",
		apply: func(metricName string, p *Profile, asOf time.Time, r *ResolvedRange) bool {
			if !nameIs(metricName, "Total Cholesterol") || p.Age(asOf) <= 60 {
				return false
			}
			r.Max = f64(240)
			return true
		},
	},
}

// AdjustForProfile applies every matching rule to the range in place and
// reports whether any of them changed it.
func AdjustForProfile(metricName string, p *Profile, asOf time.Time, r *ResolvedRange) bool {
	if p == nil {
		return false
	}
	adjusted := false
	for _, rule := range profileRules {
		if rule.apply(metricName, p, asOf, r) {
			adjusted = true
		}
	}
	return adjusted
}

func nameIs(metricName, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(metricName), canonical)
}
