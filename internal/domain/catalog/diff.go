package catalog

import (
	"fmt"
	"strings"
)

// DiffSummary is the coarse metric-level diff a commit records.
type DiffSummary struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

// SheetDiff counts row and cell level changes within one sheet.
type SheetDiff struct {
	AddedRows    int `json:"added_rows"`
	RemovedRows  int `json:"removed_rows"`
	ChangedRows  int `json:"changed_rows"`
	ChangedCells int `json:"changed_cells"`
}

// DetailedDiff breaks the diff down per sheet with totals.
type DetailedDiff struct {
	Totals SheetDiff            `json:"totals"`
	Sheets map[string]SheetDiff `json:"sheets"`
}

// computeDiff compares proposed metrics against the live set by metric_id,
// using the mutable-field content hash to detect changes.
func computeDiff(live []*Metric, p *Proposal) DiffSummary {
	liveByID := make(map[string]*Metric, len(live))
	for _, m := range live {
		liveByID[m.MetricID] = m
	}

	var d DiffSummary
	seen := make(map[string]bool, len(p.Metrics))
	for _, row := range p.Metrics {
		id := strings.TrimSpace(row.MetricID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		existing, ok := liveByID[id]
		if !ok {
			d.Added++
			continue
		}
		if metricHash(row.Normalize()) != metricHash(*existing) {
			d.Changed++
		}
	}
	for id := range liveByID {
		if !seen[id] {
			d.Removed++
		}
	}
	return d
}

// computeDetailedDiff reports per-sheet row and changed-cell counts against
// the live record sets.
func computeDetailedDiff(metrics []*Metric, synonyms []*Synonym, edges []*Edge, p *Proposal) *DetailedDiff {
	metricIdx := make(map[string][]string, len(metrics))
	for _, m := range metrics {
		metricIdx[m.MetricID] = metricCells(*m)
	}
	synIdx := make(map[string][]string, len(synonyms))
	for _, s := range synonyms {
		synIdx[s.SynonymID+"::"+s.MetricID] = []string{s.SynonymName, s.Notes}
	}
	edgeIdx := make(map[string][]string, len(edges))
	for _, e := range edges {
		edgeIdx[e.ConversionGroupID+"::"+e.AltUnit] = edgeCells(*e)
	}

	sheets := map[string]SheetDiff{
		"metrics": diffSheet(metricIdx, len(p.Metrics), func(i int) (string, []string) {
			row := p.Metrics[i]
			return strings.TrimSpace(row.MetricID), metricCells(row.Normalize())
		}),
		"synonyms": diffSheet(synIdx, len(p.Synonyms), func(i int) (string, []string) {
			row := p.Synonyms[i]
			n := row.Normalize()
			return n.SynonymID + "::" + n.MetricID, []string{n.SynonymName, n.Notes}
		}),
		"conversion_groups": diffSheet(edgeIdx, len(p.Edges), func(i int) (string, []string) {
			row := p.Edges[i]
			n := row.Normalize()
			return n.ConversionGroupID + "::" + n.AltUnit, edgeCells(n)
		}),
	}

	var totals SheetDiff
	for _, s := range sheets {
		totals.AddedRows += s.AddedRows
		totals.RemovedRows += s.RemovedRows
		totals.ChangedRows += s.ChangedRows
		totals.ChangedCells += s.ChangedCells
	}
	return &DetailedDiff{Totals: totals, Sheets: sheets}
}

func diffSheet(idx map[string][]string, n int, rowAt func(int) (string, []string)) SheetDiff {
	var d SheetDiff
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		key, cells := rowAt(i)
		seen[key] = true
		existing, ok := idx[key]
		if !ok {
			d.AddedRows++
			continue
		}
		changed := false
		for j := range cells {
			if strings.TrimSpace(cells[j]) != strings.TrimSpace(existing[j]) {
				d.ChangedCells++
				changed = true
			}
		}
		if changed {
			d.ChangedRows++
		}
	}
	for key := range idx {
		if !seen[key] {
			d.RemovedRows++
		}
	}
	return d
}

func metricCells(m Metric) []string {
	return []string{
		m.Name,
		intCell(m.SystemID),
		m.CanonicalUnit,
		m.ConversionGroupID,
		floatCell(m.NormalMin),
		floatCell(m.NormalMax),
		boolCell(m.IsKeyMetric),
		m.Source,
		m.Explanation,
	}
}

func edgeCells(e Edge) []string {
	return []string{e.CanonicalUnit, e.AltUnit, e.ToCanonicalFormula, e.FromCanonicalFormula, e.Notes}
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", *v), "0"), ".")
}

func boolCell(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
