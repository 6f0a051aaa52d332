package conversion

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/majestic/health/internal/domain/catalog"
)

type memCatalogRepo struct {
	edges []*catalog.Edge
}

func (m *memCatalogRepo) Metrics(ctx context.Context) ([]*catalog.Metric, error)   { return nil, nil }
func (m *memCatalogRepo) Synonyms(ctx context.Context) ([]*catalog.Synonym, error) { return nil, nil }
func (m *memCatalogRepo) Edges(ctx context.Context) ([]*catalog.Edge, error)       { return m.edges, nil }

func testStore() *catalog.Store {
	return catalog.NewStore(&memCatalogRepo{edges: []*catalog.Edge{
		{ConversionGroupID: "glucose", CanonicalUnit: "mg/dL", AltUnit: "mmol/L",
			ToCanonicalFormula: "x * 18.018", FromCanonicalFormula: "x / 18.018"},
		{ConversionGroupID: "cholesterol", CanonicalUnit: "mg/dL", AltUnit: "mmol/L",
			ToCanonicalFormula: "x * 38.67", FromCanonicalFormula: "x / 38.67"},
		{ConversionGroupID: "cholesterol", CanonicalUnit: "mg/dL", AltUnit: "g/L",
			ToCanonicalFormula: "x * 100", FromCanonicalFormula: "x / 100"},
	}})
}

func strictService() *Service  { return NewService(testStore(), false, zerolog.Nop()) }
func lenientService() *Service { return NewService(testStore(), true, zerolog.Nop()) }

func TestConvert_SameUnitShortCircuits(t *testing.T) {
	// Even an unknown group works when no conversion happens.
	v, err := strictService().Convert(context.Background(), 42, "mg/dL", "mg/dL", "nonexistent")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if v != 42 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestConvert_AltToCanonical(t *testing.T) {
	v, err := strictService().Convert(context.Background(), 5.55, "mmol/L", "mg/dL", "glucose")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if math.Abs(v-100) > 0.01 {
		t.Errorf("5.55 mmol/L = %v mg/dL, want ~100", v)
	}
}

func TestConvert_CanonicalToAlt(t *testing.T) {
	v, err := strictService().Convert(context.Background(), 100, "mg/dL", "mmol/L", "glucose")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if math.Abs(v-5.55) > 0.01 {
		t.Errorf("100 mg/dL = %v mmol/L, want ~5.55", v)
	}
}

func TestConvert_AltToAltThroughCanonical(t *testing.T) {
	// mmol/L -> mg/dL -> g/L, both hops within one call.
	v, err := strictService().Convert(context.Background(), 5.0, "mmol/L", "g/L", "cholesterol")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := 5.0 * 38.67 / 100
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	svc := strictService()
	ctx := context.Background()
	for _, x := range []float64{0.5, 1, 73.2, 250} {
		there, err := svc.Convert(ctx, x, "mg/dL", "mmol/L", "glucose")
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		back, err := svc.Convert(ctx, there, "mmol/L", "mg/dL", "glucose")
		if err != nil {
			t.Fatalf("convert back: %v", err)
		}
		if math.Abs(back-x) > 1e-9 {
			t.Errorf("round trip of %v drifted to %v", x, back)
		}
	}
}

func TestConvert_UnknownGroup(t *testing.T) {
	_, err := strictService().Convert(context.Background(), 1, "mg/dL", "mmol/L", "nonexistent")
	var nf *GroupNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected GroupNotFoundError, got %v", err)
	}
}

func TestConvert_UnknownUnitStrict(t *testing.T) {
	_, err := strictService().Convert(context.Background(), 1, "furlongs", "mg/dL", "glucose")
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if ce.Unit != "furlongs" {
		t.Errorf("error names unit %q", ce.Unit)
	}
}

func TestConvert_UnknownUnitLenientReturnsInput(t *testing.T) {
	v, err := lenientService().Convert(context.Background(), 7.5, "furlongs", "mg/dL", "glucose")
	if err != nil {
		t.Fatalf("lenient mode must not error: %v", err)
	}
	if v != 7.5 {
		t.Errorf("lenient fallback returned %v, want input 7.5", v)
	}
}

func TestAvailableUnits(t *testing.T) {
	units, err := strictService().AvailableUnits(context.Background(), "cholesterol")
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	want := []string{"mg/dL", "mmol/L", "g/L"}
	if len(units) != len(want) {
		t.Fatalf("units = %v, want %v", units, want)
	}
	for i := range want {
		if units[i] != want[i] {
			t.Errorf("units[%d] = %s, want %s", i, units[i], want[i])
		}
	}
}

func TestAvailableUnits_UnknownGroup(t *testing.T) {
	_, err := strictService().AvailableUnits(context.Background(), "nonexistent")
	var nf *GroupNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected GroupNotFoundError, got %v", err)
	}
}
