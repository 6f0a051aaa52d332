package resolution

import (
	"context"
	"strings"

	"github.com/majestic/health/internal/domain/catalog"
)

// MatchStage records which step of the cascade produced a match.
type MatchStage string

const (
	StageExactName    MatchStage = "exact_name"
	StageExactSynonym MatchStage = "exact_synonym"
	StageFuzzyName    MatchStage = "fuzzy_name"
	StageFuzzySynonym MatchStage = "fuzzy_synonym"
)

// Match is a resolved metric with its confidence. A nil Match means nothing
// cleared the caller's floor; that is an answer, not an error.
type Match struct {
	Metric     *catalog.Metric `json:"metric"`
	Confidence float64         `json:"confidence"`
	Stage      MatchStage      `json:"stage"`
	MatchedOn  string          `json:"matched_on"`
}

// Resolver cascades exact and fuzzy lookups over the catalog store.
type Resolver struct {
	store *catalog.Store
}

func NewResolver(store *catalog.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps rawName to a canonical metric. The cascade stops at the
// first perfect hit; otherwise the best candidate across all stages wins,
// provided it clears floor.
func (r *Resolver) Resolve(ctx context.Context, rawName string, floor float64) (*Match, error) {
	metrics, err := r.store.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	synonyms, err := r.store.Synonyms(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*catalog.Metric, len(metrics))
	for _, m := range metrics {
		byID[m.MetricID] = m
	}

	// Stage 1: exact case-insensitive canonical name.
	for _, m := range metrics {
		if strings.EqualFold(strings.TrimSpace(rawName), strings.TrimSpace(m.Name)) {
			return &Match{Metric: m, Confidence: 1.0, Stage: StageExactName, MatchedOn: m.Name}, nil
		}
	}

	// Stage 2: exact case-insensitive synonym.
	for _, s := range synonyms {
		if strings.EqualFold(strings.TrimSpace(rawName), strings.TrimSpace(s.SynonymName)) {
			if m := byID[s.MetricID]; m != nil {
				return &Match{Metric: m, Confidence: 1.0, Stage: StageExactSynonym, MatchedOn: s.SynonymName}, nil
			}
		}
	}

	var best *Match

	consider := func(m *catalog.Metric, candidate string, stage MatchStage) {
		score := Similarity(rawName, candidate)
		if score < floor {
			return
		}
		if best == nil || score > best.Confidence {
			best = &Match{Metric: m, Confidence: score, Stage: stage, MatchedOn: candidate}
		}
	}

	// Stage 3: fuzzy over canonical names.
	for _, m := range metrics {
		consider(m, m.Name, StageFuzzyName)
		if best != nil && best.Confidence == 1.0 {
			return best, nil
		}
	}

	// Stage 4: fuzzy over synonyms.
	for _, s := range synonyms {
		if m := byID[s.MetricID]; m != nil {
			consider(m, s.SynonymName, StageFuzzySynonym)
			if best != nil && best.Confidence == 1.0 {
				return best, nil
			}
		}
	}

	return best, nil
}
