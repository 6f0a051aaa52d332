// Package catalog owns the versioned master catalog: canonical metrics, their
// name synonyms and unit conversion edges. The live record sets are replaced
// wholesale on every commit; individual rows are never mutated in place.
package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Metric is a canonical catalog metric. MetricID is a stable external key
// that is never reused.
type Metric struct {
	MetricID          string   `json:"metric_id"`
	Name              string   `json:"metric_name"`
	SystemID          *int     `json:"system_id"`
	CanonicalUnit     string   `json:"canonical_unit"`
	ConversionGroupID string   `json:"conversion_group_id"`
	NormalMin         *float64 `json:"normal_min"`
	NormalMax         *float64 `json:"normal_max"`
	IsKeyMetric       bool     `json:"is_key_metric"`
	Source            string   `json:"source"`
	Explanation       string   `json:"explanation"`
}

// Unitless reports whether the metric participates in no conversion group.
func (m *Metric) Unitless() bool { return m.ConversionGroupID == "" }

// Synonym is an alternate name for a canonical metric. Synonym names need
// not be globally unique; ambiguous names resolve to the best-scoring match.
type Synonym struct {
	SynonymID   string `json:"synonym_id"`
	MetricID    string `json:"metric_id"`
	SynonymName string `json:"synonym_name"`
	Notes       string `json:"notes"`
}

// Edge is one conversion rule between a group's canonical unit and an
// alternate unit. Composite key (conversion_group_id, alt_unit).
type Edge struct {
	ConversionGroupID    string `json:"conversion_group_id"`
	CanonicalUnit        string `json:"canonical_unit"`
	AltUnit              string `json:"alt_unit"`
	ToCanonicalFormula   string `json:"to_canonical_formula"`
	FromCanonicalFormula string `json:"from_canonical_formula"`
	Notes                string `json:"notes"`
}

// Version records one applied catalog commit. Immutable once created.
type Version struct {
	VersionID     int64     `json:"version_id"`
	ChangeSummary string    `json:"change_summary"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	ContentHash   string    `json:"content_hash"`
	AddedCount    int       `json:"added_count"`
	ChangedCount  int       `json:"changed_count"`
	RemovedCount  int       `json:"removed_count"`
	DocumentPath  string    `json:"document_path,omitempty"`
}

// =========== Proposal (bulk import document) ===========

// MetricRow is one proposed metric exactly as it appears in the uploaded
// document. Fields stay raw strings so the validator can report type errors
// instead of losing them to premature parsing.
type MetricRow struct {
	MetricID          string `json:"metric_id"`
	Name              string `json:"metric_name"`
	SystemID          string `json:"system_id"`
	CanonicalUnit     string `json:"canonical_unit"`
	ConversionGroupID string `json:"conversion_group_id"`
	NormalMin         string `json:"normal_min"`
	NormalMax         string `json:"normal_max"`
	IsKeyMetric       string `json:"is_key_metric"`
	Source            string `json:"source"`
	Explanation       string `json:"explanation"`
}

type SynonymRow struct {
	SynonymID   string `json:"synonym_id"`
	MetricID    string `json:"metric_id"`
	SynonymName string `json:"synonym_name"`
	Notes       string `json:"notes"`
}

type EdgeRow struct {
	ConversionGroupID    string `json:"conversion_group_id"`
	CanonicalUnit        string `json:"canonical_unit"`
	AltUnit              string `json:"alt_unit"`
	ToCanonicalFormula   string `json:"to_canonical_formula"`
	FromCanonicalFormula string `json:"from_canonical_formula"`
	Notes                string `json:"notes"`
}

// Proposal is the three-part bulk import document. The same shape is stored
// as the per-version snapshot, so rollback replays exactly what was proposed.
type Proposal struct {
	Metrics  []MetricRow  `json:"metrics"`
	Synonyms []SynonymRow `json:"synonyms"`
	Edges    []EdgeRow    `json:"conversion_groups"`
}

// Normalize converts the raw row into a typed Metric, applying the same
// coercions the persistence layer applies on insert.
func (r MetricRow) Normalize() Metric {
	return Metric{
		MetricID:          truncate(strings.TrimSpace(r.MetricID), 100),
		Name:              truncate(r.Name, 255),
		SystemID:          SanitizeSystemID(r.SystemID),
		CanonicalUnit:     truncate(r.CanonicalUnit, 50),
		ConversionGroupID: truncate(r.ConversionGroupID, 100),
		NormalMin:         ParseDecimal(r.NormalMin),
		NormalMax:         ParseDecimal(r.NormalMax),
		IsKeyMetric:       strings.EqualFold(strings.TrimSpace(r.IsKeyMetric), "Y") || strings.EqualFold(strings.TrimSpace(r.IsKeyMetric), "true"),
		Source:            truncate(r.Source, 100),
		Explanation:       r.Explanation,
	}
}

func (r SynonymRow) Normalize() Synonym {
	return Synonym{
		SynonymID:   truncate(strings.TrimSpace(r.SynonymID), 100),
		MetricID:    truncate(strings.TrimSpace(r.MetricID), 100),
		SynonymName: truncate(r.SynonymName, 255),
		Notes:       r.Notes,
	}
}

func (r EdgeRow) Normalize() Edge {
	return Edge{
		ConversionGroupID:    truncate(strings.TrimSpace(r.ConversionGroupID), 100),
		CanonicalUnit:        truncate(r.CanonicalUnit, 50),
		AltUnit:              truncate(r.AltUnit, 50),
		ToCanonicalFormula:   truncate(r.ToCanonicalFormula, 255),
		FromCanonicalFormula: truncate(r.FromCanonicalFormula, 255),
		Notes:                r.Notes,
	}
}

// =========== Coercion helpers ===========

const decimalLimit = 9999999.999

// ParseDecimal parses a numeric-ish cell into a value that fits
// DECIMAL(10,3), or nil. It tolerates thousand separators and a decimal
// comma: if both comma and dot appear the commas are separators; a lone
// comma is a decimal point.
func ParseDecimal(input string) *float64 {
	s := strings.TrimSpace(input)
	if s == "" || strings.EqualFold(s, "null") || s == "-" {
		return nil
	}
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ",", "")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}
	var b strings.Builder
	for _, c := range s {
		if (c >= '0' && c <= '9') || c == '.' || c == '-' {
			b.WriteRune(c)
		}
	}
	s = b.String()
	if s == "" || s == "-" || s == "." || s == "-." {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) {
		return nil
	}
	n = math.Max(-decimalLimit, math.Min(decimalLimit, n))
	n = math.Round(n*1000) / 1000
	return &n
}

// SanitizeSystemID parses an integer classification tag, accepting only the
// known range 1..13.
func SanitizeSystemID(input string) *int {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 13 {
		return nil
	}
	return &n
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
