package ranges

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/majestic/health/internal/domain/resolution"
)

// Service resolves reference ranges and manages custom overrides.
type Service struct {
	resolver *resolution.Resolver
	repo     Repository
	profiles ProfileRepository
	log      zerolog.Logger
}

func NewService(resolver *resolution.Resolver, repo Repository, profiles ProfileRepository, log zerolog.Logger) *Service {
	return &Service{resolver: resolver, repo: repo, profiles: profiles, log: log}
}

// ResolveRange layers, most specific first: the user's active custom range
// for asOf, the profile-adjusted catalog default, the raw catalog default.
// An unknown metric with no override resolves to nil without error so
// ingestion can carry on.
func (s *Service) ResolveRange(ctx context.Context, userID int64, metricName string, asOf time.Time) (*ResolvedRange, error) {
	custom, err := s.repo.ActiveAt(ctx, userID, metricName, asOf)
	if err != nil {
		return nil, err
	}
	if custom != nil {
		return &ResolvedRange{
			MetricName: custom.MetricName,
			Min:        &custom.MinValue,
			Max:        &custom.MaxValue,
			Unit:       custom.Units,
			Source:     SourceCustom,
			Condition:  custom.MedicalCondition,
			Notes:      custom.Notes,
		}, nil
	}

	// Custom ranges key on free-text names; catalog defaults need an exact
	// canonical or synonym hit.
	match, err := s.resolver.Resolve(ctx, metricName, 1.0)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}
	metric := match.Metric

	r := &ResolvedRange{
		MetricName: metric.Name,
		Min:        metric.NormalMin,
		Max:        metric.NormalMax,
		Unit:       metric.CanonicalUnit,
		Source:     SourceDefault,
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if AdjustForProfile(metric.Name, profile, asOf, r) {
		r.Source = SourceProfile
	}
	return r, nil
}

// Create validates and inserts a custom range. The overlap check and the
// insert run in one transaction so concurrent writers cannot slip
// overlapping intervals past each other.
func (s *Service) Create(ctx context.Context, cr *CustomRange) (int64, error) {
	if cr.MinValue >= cr.MaxValue {
		return 0, ErrInvalidBounds
	}
	from := cr.ValidFrom
	if from == nil {
		now := time.Now().UTC().Truncate(24 * time.Hour)
		from = &now
		cr.ValidFrom = from
	}

	var id int64
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		overlap, err := s.repo.HasOverlap(ctx, cr.UserID, cr.MetricName, cr.MedicalCondition, *from, cr.ValidUntil, 0)
		if err != nil {
			return err
		}
		if overlap {
			return ErrOverlap
		}
		id, err = s.repo.Insert(ctx, cr)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites an existing active range, re-running the overlap check
// against every other range.
func (s *Service) Update(ctx context.Context, cr *CustomRange) error {
	if cr.MinValue >= cr.MaxValue {
		return ErrInvalidBounds
	}
	from := cr.ValidFrom
	if from == nil {
		now := time.Now().UTC().Truncate(24 * time.Hour)
		from = &now
		cr.ValidFrom = from
	}

	return s.repo.WithinTx(ctx, func(ctx context.Context) error {
		overlap, err := s.repo.HasOverlap(ctx, cr.UserID, cr.MetricName, cr.MedicalCondition, *from, cr.ValidUntil, cr.ID)
		if err != nil {
			return err
		}
		if overlap {
			return ErrOverlap
		}
		return s.repo.Update(ctx, cr)
	})
}

// Delete soft-deletes a range; history stays queryable.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Deactivate(ctx, userID, id)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*CustomRange, error) {
	return s.repo.Get(ctx, userID, id)
}

// ListGrouped returns the user's active ranges grouped by metric name,
// the shape the profile screen renders.
func (s *Service) ListGrouped(ctx context.Context, userID int64) (map[string][]*CustomRange, error) {
	all, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*CustomRange)
	for _, cr := range all {
		grouped[cr.MetricName] = append(grouped[cr.MetricName], cr)
	}
	return grouped, nil
}
