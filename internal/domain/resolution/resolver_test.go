package resolution

import (
	"context"
	"testing"

	"github.com/majestic/health/internal/domain/catalog"
)

// memCatalogRepo is a map-backed catalog read repository.
type memCatalogRepo struct {
	metrics  []*catalog.Metric
	synonyms []*catalog.Synonym
	edges    []*catalog.Edge
}

func (m *memCatalogRepo) Metrics(ctx context.Context) ([]*catalog.Metric, error) {
	return m.metrics, nil
}
func (m *memCatalogRepo) Synonyms(ctx context.Context) ([]*catalog.Synonym, error) {
	return m.synonyms, nil
}
func (m *memCatalogRepo) Edges(ctx context.Context) ([]*catalog.Edge, error) {
	return m.edges, nil
}

func testStore() *catalog.Store {
	return catalog.NewStore(&memCatalogRepo{
		metrics: []*catalog.Metric{
			{MetricID: "hdl", Name: "HDL Cholesterol"},
			{MetricID: "ldl", Name: "LDL Cholesterol"},
			{MetricID: "glucose_fasting", Name: "Fasting Glucose"},
			{MetricID: "tsh", Name: "Thyroid Stimulating Hormone"},
		},
		synonyms: []*catalog.Synonym{
			{SynonymID: "s1", MetricID: "hdl", SynonymName: "HDL-C"},
			{SynonymID: "s2", MetricID: "glucose_fasting", SynonymName: "Glucose (Fasting)"},
			{SynonymID: "s3", MetricID: "tsh", SynonymName: "TSH"},
		},
	})
}

func TestResolve_ExactCanonicalName(t *testing.T) {
	r := NewResolver(testStore())
	m, err := r.Resolve(context.Background(), "HDL Cholesterol", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m == nil || m.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %+v", m)
	}
	if m.Stage != StageExactName || m.Metric.MetricID != "hdl" {
		t.Errorf("wrong match: %+v", m)
	}
}

func TestResolve_ExactNameIsCaseInsensitive(t *testing.T) {
	r := NewResolver(testStore())
	m, err := r.Resolve(context.Background(), "hdl cholesterol", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m == nil || m.Confidence != 1.0 || m.Stage != StageExactName {
		t.Fatalf("expected exact-name hit, got %+v", m)
	}
}

func TestResolve_ExactSynonym(t *testing.T) {
	r := NewResolver(testStore())
	m, err := r.Resolve(context.Background(), "tsh", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m == nil || m.Confidence != 1.0 || m.Stage != StageExactSynonym {
		t.Fatalf("expected exact-synonym hit, got %+v", m)
	}
	if m.Metric.MetricID != "tsh" {
		t.Errorf("resolved to %s", m.Metric.MetricID)
	}
}

func TestResolve_FuzzyLandsInReviewBand(t *testing.T) {
	r := NewResolver(testStore())
	m, err := r.Resolve(context.Background(), "Chol HDL", 0.75)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m == nil {
		t.Fatal("expected a match above the floor")
	}
	if m.Confidence < 0.75 || m.Confidence >= 0.95 {
		t.Errorf("confidence %v outside review band [0.75, 0.95)", m.Confidence)
	}
	if m.Metric.MetricID != "hdl" {
		t.Errorf("resolved to %s, want hdl", m.Metric.MetricID)
	}
}

func TestResolve_NoMatchBelowFloorIsNil(t *testing.T) {
	r := NewResolver(testStore())
	m, err := r.Resolve(context.Background(), "Serum Rhubarb", 0.75)
	if err != nil {
		t.Fatalf("no-match must not error: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil match, got %+v", m)
	}
}

func TestResolve_BestScoreAcrossStagesWins(t *testing.T) {
	r := NewResolver(testStore())
	// "Glucose Fasting" word-swaps the canonical name and is containment-
	// close to the synonym "Glucose (Fasting)".
	m, err := r.Resolve(context.Background(), "Glucose Fasting", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m == nil || m.Metric.MetricID != "glucose_fasting" {
		t.Fatalf("expected glucose_fasting, got %+v", m)
	}
	if m.Confidence != 1.0 {
		t.Errorf("synonym normalizes equal, want 1.0, got %v", m.Confidence)
	}
}

func TestClassify(t *testing.T) {
	p := Policy{AutoThreshold: 0.95, ReviewThreshold: 0.75}
	cases := []struct {
		m    *Match
		want Disposition
	}{
		{nil, DispositionUnresolved},
		{&Match{Confidence: 1.0}, DispositionAuto},
		{&Match{Confidence: 0.95}, DispositionAuto},
		{&Match{Confidence: 0.94}, DispositionReview},
		{&Match{Confidence: 0.75}, DispositionReview},
		{&Match{Confidence: 0.74}, DispositionUnresolved},
		{&Match{Confidence: 0}, DispositionUnresolved},
	}
	for _, c := range cases {
		if got := p.Classify(c.m); got != c.want {
			t.Errorf("Classify(%+v) = %s, want %s", c.m, got, c.want)
		}
	}
}
