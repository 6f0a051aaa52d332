// Package conversion converts numeric values between units through each
// group's canonical unit, using the restricted formula grammar.
package conversion

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/majestic/health/internal/domain/catalog"
	"github.com/majestic/health/pkg/formula"
)

// Service evaluates conversions against the live catalog. With Lenient set,
// an unreachable unit returns the input value unchanged and logs a warning
// instead of failing; that mode exists for resilience against incomplete
// catalogs and is off by default.
type Service struct {
	store   *catalog.Store
	lenient bool
	log     zerolog.Logger
}

func NewService(store *catalog.Store, lenient bool, log zerolog.Logger) *Service {
	return &Service{store: store, lenient: lenient, log: log}
}

// Convert converts value from fromUnit to toUnit within groupID. Matching
// units short-circuit without touching the catalog.
func (s *Service) Convert(ctx context.Context, value float64, fromUnit, toUnit, groupID string) (float64, error) {
	if fromUnit == toUnit {
		return value, nil
	}

	edges, err := s.store.EdgesByGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if len(edges) == 0 {
		return 0, &GroupNotFoundError{GroupID: groupID}
	}
	canonical := edges[0].CanonicalUnit

	v := value
	if fromUnit != canonical {
		edge := findEdge(edges, fromUnit)
		if edge == nil || edge.ToCanonicalFormula == "" {
			return s.degrade(value, fromUnit, groupID, "no to-canonical formula")
		}
		v, err = eval(edge.ToCanonicalFormula, v)
		if err != nil {
			return 0, &ConversionError{GroupID: groupID, Unit: fromUnit, Reason: err.Error()}
		}
	}

	if toUnit != canonical {
		edge := findEdge(edges, toUnit)
		if edge == nil || edge.FromCanonicalFormula == "" {
			return s.degrade(value, toUnit, groupID, "no from-canonical formula")
		}
		v, err = eval(edge.FromCanonicalFormula, v)
		if err != nil {
			return 0, &ConversionError{GroupID: groupID, Unit: toUnit, Reason: err.Error()}
		}
	}

	return v, nil
}

// AvailableUnits lists every unit reachable within a group, canonical
// first.
func (s *Service) AvailableUnits(ctx context.Context, groupID string) ([]string, error) {
	edges, err := s.store.EdgesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, &GroupNotFoundError{GroupID: groupID}
	}

	seen := map[string]bool{edges[0].CanonicalUnit: true}
	units := []string{edges[0].CanonicalUnit}
	for _, e := range edges {
		if e.AltUnit != "" && !seen[e.AltUnit] {
			seen[e.AltUnit] = true
			units = append(units, e.AltUnit)
		}
	}
	return units, nil
}

// degrade applies the lenient fallback or fails, depending on
// configuration. The fallback is always logged: it can mask
// unit-mismatched data.
func (s *Service) degrade(value float64, unit, groupID, reason string) (float64, error) {
	if !s.lenient {
		return 0, &ConversionError{GroupID: groupID, Unit: unit, Reason: reason}
	}
	s.log.Warn().Str("group_id", groupID).Str("unit", unit).Str("reason", reason).
		Float64("value", value).
		Msg("conversion degraded: returning unconverted value")
	return value, nil
}

func findEdge(edges []*catalog.Edge, unit string) *catalog.Edge {
	for _, e := range edges {
		if e.AltUnit == unit {
			return e
		}
	}
	return nil
}

func eval(src string, x float64) (float64, error) {
	expr, err := formula.Parse(src)
	if err != nil {
		return 0, err
	}
	return expr.Eval(x)
}
