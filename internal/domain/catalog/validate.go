package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/majestic/health/pkg/formula"
)

// invertTolerance bounds the round-trip deviation allowed between an edge's
// to/from formula pair.
const invertTolerance = 1e-9

// ValidateProposal checks a proposal structurally and referentially,
// accumulating every problem rather than stopping at the first. An empty
// result means the proposal may be committed.
func ValidateProposal(p *Proposal) []string {
	var errs []string

	if len(p.Metrics) == 0 {
		errs = append(errs, "metrics: no rows")
	}

	metricIDs := make(map[string]bool, len(p.Metrics))
	allowedUnits := make(map[string]bool)

	for _, row := range p.Edges {
		if row.CanonicalUnit != "" {
			allowedUnits[row.CanonicalUnit] = true
		}
		if row.AltUnit != "" {
			allowedUnits[row.AltUnit] = true
		}
		errs = append(errs, validateEdgeFormulas(row)...)
	}

	for _, row := range p.Metrics {
		id := strings.TrimSpace(row.MetricID)
		if id == "" {
			errs = append(errs, "metrics: row missing metric_id")
			continue
		}
		metricIDs[id] = true

		if strings.TrimSpace(row.Name) == "" {
			errs = append(errs, fmt.Sprintf("metrics[%s]: metric_name is required", id))
		}
		if s := strings.TrimSpace(row.SystemID); s != "" {
			if _, err := strconv.Atoi(s); err != nil {
				errs = append(errs, fmt.Sprintf("metrics[%s]: system_id must be integer (found %q)", id, row.SystemID))
			} else if SanitizeSystemID(s) == nil {
				errs = append(errs, fmt.Sprintf("metrics[%s]: system_id out of range 1..13 (found %q)", id, row.SystemID))
			}
		}

		min := ParseDecimal(row.NormalMin)
		max := ParseDecimal(row.NormalMax)
		if strings.TrimSpace(row.NormalMin) != "" && min == nil {
			errs = append(errs, fmt.Sprintf("metrics[%s]: normal_min must be numeric (found %q)", id, row.NormalMin))
		}
		if strings.TrimSpace(row.NormalMax) != "" && max == nil {
			errs = append(errs, fmt.Sprintf("metrics[%s]: normal_max must be numeric (found %q)", id, row.NormalMax))
		}
		if min != nil && max != nil && *min > *max {
			errs = append(errs, fmt.Sprintf("metrics[%s]: normal_min %v exceeds normal_max %v", id, *min, *max))
		}

		if v := strings.ToUpper(strings.TrimSpace(row.IsKeyMetric)); v != "" {
			switch v {
			case "Y", "N", "TRUE", "FALSE":
			default:
				errs = append(errs, fmt.Sprintf("metrics[%s]: is_key_metric must be Y or N (found %q)", id, row.IsKeyMetric))
			}
		}

		// A metric inside a conversion group must use a unit the group's
		// edges can reach, even when the proposal ships no edges at all.
		// Unitless metrics are exempt.
		if row.CanonicalUnit != "" && strings.TrimSpace(row.ConversionGroupID) != "" && !allowedUnits[row.CanonicalUnit] {
			errs = append(errs, fmt.Sprintf("metrics[%s]: canonical_unit %q not present in conversion_groups units", id, row.CanonicalUnit))
		}
	}

	for _, row := range p.Synonyms {
		mid := strings.TrimSpace(row.MetricID)
		if mid == "" {
			errs = append(errs, fmt.Sprintf("synonyms[%s]: missing metric_id", row.SynonymID))
			continue
		}
		if !metricIDs[mid] {
			errs = append(errs, fmt.Sprintf("synonyms[%s]: metric_id %q not in proposed metrics", row.SynonymID, mid))
		}
	}

	return errs
}

func validateEdgeFormulas(row EdgeRow) []string {
	var errs []string
	gid := row.ConversionGroupID

	check := func(field, src string) *formula.Expr {
		if strings.TrimSpace(src) == "" {
			return nil
		}
		expr, err := formula.Parse(src)
		if err != nil {
			errs = append(errs, fmt.Sprintf("conversion_groups[%s/%s]: %s does not parse: %v", gid, row.AltUnit, field, err))
			return nil
		}
		if !expr.ReferencesVar() {
			errs = append(errs, fmt.Sprintf("conversion_groups[%s/%s]: %s must reference 'x'", gid, row.AltUnit, field))
			return nil
		}
		return expr
	}

	to := check("to_canonical_formula", row.ToCanonicalFormula)
	from := check("from_canonical_formula", row.FromCanonicalFormula)

	if to != nil && from != nil {
		worst, err := formula.RoundTripError(row.ToCanonicalFormula, row.FromCanonicalFormula)
		if err != nil {
			errs = append(errs, fmt.Sprintf("conversion_groups[%s/%s]: round-trip evaluation failed: %v", gid, row.AltUnit, err))
		} else if worst > invertTolerance {
			errs = append(errs, fmt.Sprintf("conversion_groups[%s/%s]: formulas are not mutual inverses (round-trip error %g)", gid, row.AltUnit, worst))
		}
	}
	return errs
}
