package ranges

import (
	"testing"
	"time"
)

func TestAdjustForProfile(t *testing.T) {
	asOf := day("2024-05-01")
	dob1950 := day("1950-03-15")
	dob1990 := day("1990-03-15")

	base := func() *ResolvedRange {
		return &ResolvedRange{Min: f(10), Max: f(200), Source: SourceDefault}
	}

	tests := []struct {
		name     string
		metric   string
		profile  *Profile
		adjusted bool
		wantMin  float64
		wantMax  float64
	}{
		{"hdl male", "HDL Cholesterol", &Profile{Sex: "Male"}, true, 40, 60},
		{"hdl female", "HDL Cholesterol", &Profile{Sex: "Female"}, true, 50, 60},
		{"hdl sex unknown", "HDL Cholesterol", &Profile{}, false, 10, 200},
		{"hdl case-insensitive name", "hdl cholesterol", &Profile{Sex: "male"}, true, 40, 60},
		{"ldl with cvd", "LDL Cholesterol", &Profile{HasCardiovascularDisease: true}, true, 10, 70},
		{"ldl without cvd", "LDL Cholesterol", &Profile{}, false, 10, 200},
		{"tc past 60", "Total Cholesterol", &Profile{DateOfBirth: &dob1950}, true, 10, 240},
		{"tc under 60", "Total Cholesterol", &Profile{DateOfBirth: &dob1990}, false, 10, 200},
		{"tc unknown age", "Total Cholesterol", &Profile{}, false, 10, 200},
		{"unrelated metric", "Fasting Glucose", &Profile{Sex: "Male", HasCardiovascularDisease: true}, false, 10, 200},
		{"nil profile", "HDL Cholesterol", nil, false, 10, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			got := AdjustForProfile(tt.metric, tt.profile, asOf, r)
			if got != tt.adjusted {
				t.Fatalf("adjusted = %v, want %v", got, tt.adjusted)
			}
			if *r.Min != tt.wantMin || *r.Max != tt.wantMax {
				t.Errorf("range = %v..%v, want %v..%v", *r.Min, *r.Max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestAdjustForProfile_Idempotent(t *testing.T) {
	p := &Profile{Sex: "Female", HasCardiovascularDisease: true}
	r := &ResolvedRange{Min: f(10), Max: f(200)}
	AdjustForProfile("HDL Cholesterol", p, time.Now(), r)
	first := *r
	AdjustForProfile("HDL Cholesterol", p, time.Now(), r)
	if *r.Min != *first.Min || *r.Max != *first.Max {
		t.Errorf("second application changed the range: %v..%v vs %v..%v",
			*r.Min, *r.Max, *first.Min, *first.Max)
	}
}
