package resolution

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Result is a resolution plus its policy classification.
type Result struct {
	Match       *Match      `json:"match"`
	Disposition Disposition `json:"disposition"`
}

// Service layers the classification policy over the resolver and records
// review-band matches as pending suggestions.
type Service struct {
	resolver    *Resolver
	policy      Policy
	suggestions SuggestionRepository
	log         zerolog.Logger
}

func NewService(resolver *Resolver, policy Policy, suggestions SuggestionRepository, log zerolog.Logger) *Service {
	return &Service{resolver: resolver, policy: policy, suggestions: suggestions, log: log}
}

// Resolve runs the cascade with the caller's floor and classifies the
// outcome. It does not persist anything.
func (s *Service) Resolve(ctx context.Context, rawName string, floor float64) (*Result, error) {
	m, err := s.resolver.Resolve(ctx, rawName, floor)
	if err != nil {
		return nil, err
	}
	return &Result{Match: m, Disposition: s.policy.Classify(m)}, nil
}

// ResolveForIngestion resolves with no floor, classifies, and persists a
// pending suggestion when the match lands in the review band. Auto matches
// map silently; unresolved names are the caller's problem to route.
func (s *Service) ResolveForIngestion(ctx context.Context, userID int64, rawName string) (*Result, error) {
	m, err := s.resolver.Resolve(ctx, rawName, 0)
	if err != nil {
		return nil, err
	}
	res := &Result{Match: m, Disposition: s.policy.Classify(m)}

	if res.Disposition == DispositionReview {
		id, err := s.suggestions.Insert(ctx, &Suggestion{
			UserID:            userID,
			RawName:           rawName,
			SuggestedMetricID: m.Metric.MetricID,
			SuggestedName:     m.Metric.Name,
			Confidence:        m.Confidence,
			Status:            StatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("record pending suggestion: %w", err)
		}
		s.log.Info().Int64("suggestion_id", id).Str("raw_name", rawName).
			Str("suggested", m.Metric.Name).Float64("confidence", m.Confidence).
			Msg("metric name flagged for review")
	}
	return res, nil
}

func (s *Service) Suggestions(ctx context.Context, userID int64, status string) ([]*Suggestion, error) {
	return s.suggestions.ListByUser(ctx, userID, status)
}

// Approve marks a pending suggestion approved. Only the owning user (or an
// admin acting for them) may decide it.
func (s *Service) Approve(ctx context.Context, userID, id int64) error {
	return s.decide(ctx, userID, id, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, userID, id int64) error {
	return s.decide(ctx, userID, id, StatusRejected)
}

func (s *Service) decide(ctx context.Context, userID, id int64, status string) error {
	sg, err := s.suggestions.Get(ctx, id)
	if err != nil {
		return err
	}
	if sg == nil || sg.UserID != userID {
		return fmt.Errorf("suggestion %d not found", id)
	}
	if sg.Status != StatusPending {
		return fmt.Errorf("suggestion %d already %s", id, sg.Status)
	}
	return s.suggestions.SetStatus(ctx, id, status)
}
