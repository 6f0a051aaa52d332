package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet and column layout of the bulk catalog workbook.
var (
	metricsHeader = []string{"metric_id", "metric_name", "system_id", "canonical_unit",
		"conversion_group_id", "normal_min", "normal_max", "is_key_metric", "source", "explanation"}
	synonymsHeader = []string{"synonym_id", "metric_id", "synonym_name", "notes"}
	edgesHeader    = []string{"conversion_group_id", "canonical_unit", "alt_unit",
		"to_canonical_formula", "from_canonical_formula", "notes"}
)

const (
	sheetMetrics  = "metrics"
	sheetSynonyms = "synonyms"
	sheetEdges    = "conversion_groups"
)

// ParseWorkbook reads the three-sheet XLSX catalog document into a Proposal.
// Missing sheets yield empty sections; column order in the file does not
// matter, the header row is matched by name.
func ParseWorkbook(r io.Reader) (*Proposal, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	p := &Proposal{}

	if err := eachSheetRow(f, sheetMetrics, func(cell func(string) string) {
		p.Metrics = append(p.Metrics, MetricRow{
			MetricID:          cell("metric_id"),
			Name:              cell("metric_name"),
			SystemID:          cell("system_id"),
			CanonicalUnit:     cell("canonical_unit"),
			ConversionGroupID: cell("conversion_group_id"),
			NormalMin:         cell("normal_min"),
			NormalMax:         cell("normal_max"),
			IsKeyMetric:       cell("is_key_metric"),
			Source:            cell("source"),
			Explanation:       cell("explanation"),
		})
	}); err != nil {
		return nil, err
	}

	if err := eachSheetRow(f, sheetSynonyms, func(cell func(string) string) {
		p.Synonyms = append(p.Synonyms, SynonymRow{
			SynonymID:   cell("synonym_id"),
			MetricID:    cell("metric_id"),
			SynonymName: cell("synonym_name"),
			Notes:       cell("notes"),
		})
	}); err != nil {
		return nil, err
	}

	if err := eachSheetRow(f, sheetEdges, func(cell func(string) string) {
		p.Edges = append(p.Edges, EdgeRow{
			ConversionGroupID:    cell("conversion_group_id"),
			CanonicalUnit:        cell("canonical_unit"),
			AltUnit:              cell("alt_unit"),
			ToCanonicalFormula:   cell("to_canonical_formula"),
			FromCanonicalFormula: cell("from_canonical_formula"),
			Notes:                cell("notes"),
		})
	}); err != nil {
		return nil, err
	}

	return p, nil
}

func eachSheetRow(f *excelize.File, sheet string, fn func(cell func(string) string)) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		// Absent sheet, not a malformed file.
		return nil
	}
	if len(rows) < 2 {
		return nil
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, row := range rows[1:] {
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		cell := func(name string) string {
			i, ok := colIdx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		fn(cell)
	}
	return nil
}

// ExportWorkbook renders the live catalog as the same three-sheet XLSX
// document the import endpoint accepts, so an export can be edited and
// re-submitted as a proposal.
func (s *Service) ExportWorkbook(ctx context.Context) ([]byte, error) {
	metrics, err := s.store.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	synonyms, err := s.store.Synonyms(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.Edges(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	writeSheet := func(sheet string, header []string, rows [][]interface{}) error {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		headerCells := make([]interface{}, len(header))
		for i, h := range header {
			headerCells[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
			return err
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
		return nil
	}

	metricRows := make([][]interface{}, len(metrics))
	for i, m := range metrics {
		metricRows[i] = []interface{}{m.MetricID, m.Name, intCell(m.SystemID), m.CanonicalUnit,
			m.ConversionGroupID, floatCell(m.NormalMin), floatCell(m.NormalMax),
			boolCell(m.IsKeyMetric), m.Source, m.Explanation}
	}
	synonymRows := make([][]interface{}, len(synonyms))
	for i, syn := range synonyms {
		synonymRows[i] = []interface{}{syn.SynonymID, syn.MetricID, syn.SynonymName, syn.Notes}
	}
	edgeRows := make([][]interface{}, len(edges))
	for i, e := range edges {
		edgeRows[i] = []interface{}{e.ConversionGroupID, e.CanonicalUnit, e.AltUnit,
			e.ToCanonicalFormula, e.FromCanonicalFormula, e.Notes}
	}

	if err := writeSheet(sheetMetrics, metricsHeader, metricRows); err != nil {
		return nil, err
	}
	if err := writeSheet(sheetSynonyms, synonymsHeader, synonymRows); err != nil {
		return nil, err
	}
	if err := writeSheet(sheetEdges, edgesHeader, edgeRows); err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
