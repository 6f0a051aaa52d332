package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// systemNames maps the integer classification tag onto a display name for
// the JSON exports.
var systemNames = map[int]string{
	1:  "Cardiovascular",
	2:  "Nervous/Brain",
	3:  "Respiratory",
	4:  "Muscular",
	5:  "Skeletal",
	6:  "Digestive",
	7:  "Endocrine",
	8:  "Urinary",
	9:  "Reproductive",
	10: "Integumentary",
	11: "Immune/Inflammation",
	12: "Sensory",
	13: "Genetics & Biological Age",
}

func systemName(id *int) string {
	if id == nil {
		return "Unknown"
	}
	if name, ok := systemNames[*id]; ok {
		return name
	}
	return "Unknown"
}

type catalogExport struct {
	GeneratedAt   time.Time             `json:"generated_at"`
	Metrics       []catalogExportMetric `json:"metrics"`
	UnitsSynonyms map[string][]string   `json:"units_synonyms"`
}

type catalogExportMetric struct {
	Metric         string   `json:"metric"`
	System         string   `json:"system"`
	Units          string   `json:"units"`
	NormalRangeMin *float64 `json:"normalRangeMin"`
	NormalRangeMax *float64 `json:"normalRangeMax"`
	Synonyms       []string `json:"synonyms"`
}

type simpleExportMetric struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	System    string   `json:"system"`
	Unit      string   `json:"unit"`
	NormalMin *float64 `json:"normalMin"`
	NormalMax *float64 `json:"normalMax"`
	IsKey     bool     `json:"isKey"`
}

// ExportJSON writes the two read-optimized catalog files consumed by the
// ingestion pipeline: metrics.catalog.json (metrics with synonyms plus a
// unit-synonym map) and metrics.json (flat metric list).
func (s *Service) ExportJSON(ctx context.Context, dir string) error {
	metrics, err := s.store.Metrics(ctx)
	if err != nil {
		return err
	}
	synonyms, err := s.store.Synonyms(ctx)
	if err != nil {
		return err
	}
	edges, err := s.store.Edges(ctx)
	if err != nil {
		return err
	}

	synByMetric := make(map[string][]string)
	for _, syn := range synonyms {
		synByMetric[syn.MetricID] = append(synByMetric[syn.MetricID], syn.SynonymName)
	}

	export := catalogExport{
		GeneratedAt:   time.Now().UTC(),
		UnitsSynonyms: make(map[string][]string),
	}
	simple := make([]simpleExportMetric, 0, len(metrics))

	for _, m := range metrics {
		syns := synByMetric[m.MetricID]
		// Only metrics with synonyms or marked key are worth publishing in
		// the resolution catalog.
		if len(syns) > 0 || m.IsKeyMetric {
			if syns == nil {
				syns = []string{}
			}
			export.Metrics = append(export.Metrics, catalogExportMetric{
				Metric:         m.Name,
				System:         systemName(m.SystemID),
				Units:          m.CanonicalUnit,
				NormalRangeMin: m.NormalMin,
				NormalRangeMax: m.NormalMax,
				Synonyms:       syns,
			})
		}
		simple = append(simple, simpleExportMetric{
			ID:        m.MetricID,
			Name:      m.Name,
			System:    systemName(m.SystemID),
			Unit:      m.CanonicalUnit,
			NormalMin: m.NormalMin,
			NormalMax: m.NormalMax,
			IsKey:     m.IsKeyMetric,
		})
	}

	seen := make(map[string]map[string]bool)
	for _, e := range edges {
		if e.AltUnit == "" || e.AltUnit == e.CanonicalUnit {
			continue
		}
		if seen[e.CanonicalUnit] == nil {
			seen[e.CanonicalUnit] = make(map[string]bool)
		}
		if !seen[e.CanonicalUnit][e.AltUnit] {
			seen[e.CanonicalUnit][e.AltUnit] = true
			export.UnitsSynonyms[e.CanonicalUnit] = append(export.UnitsSynonyms[e.CanonicalUnit], e.AltUnit)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "metrics.catalog.json"), export); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "metrics.json"), simple)
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
