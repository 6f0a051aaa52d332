package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Store is the read path over the live catalog with an explicit in-memory
// cache. The cache has no TTL; commit and rollback invalidate it
// synchronously, so readers never see a catalog older than the last write
// made through this process.
type Store struct {
	repo Repository

	mu     sync.RWMutex
	loaded *catalogData
}

type catalogData struct {
	metrics  []*Metric
	synonyms []*Synonym
	edges    []*Edge

	byGroup map[string][]*Edge
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Invalidate drops the cached catalog. The next read reloads from the
// repository.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loaded = nil
	s.mu.Unlock()
}

func (s *Store) load(ctx context.Context) (*catalogData, error) {
	s.mu.RLock()
	if d := s.loaded; d != nil {
		s.mu.RUnlock()
		return d, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		return s.loaded, nil
	}

	metrics, err := s.repo.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog metrics: %w", err)
	}
	synonyms, err := s.repo.Synonyms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog synonyms: %w", err)
	}
	edges, err := s.repo.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog edges: %w", err)
	}

	byGroup := make(map[string][]*Edge)
	for _, e := range edges {
		byGroup[e.ConversionGroupID] = append(byGroup[e.ConversionGroupID], e)
	}

	s.loaded = &catalogData{metrics: metrics, synonyms: synonyms, edges: edges, byGroup: byGroup}
	return s.loaded, nil
}

func (s *Store) Metrics(ctx context.Context) ([]*Metric, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return d.metrics, nil
}

func (s *Store) Synonyms(ctx context.Context) ([]*Synonym, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return d.synonyms, nil
}

func (s *Store) Edges(ctx context.Context) ([]*Edge, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return d.edges, nil
}

// EdgesByGroup returns the conversion edges of one group, or nil when the
// group is unknown.
func (s *Store) EdgesByGroup(ctx context.Context, groupID string) ([]*Edge, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return d.byGroup[groupID], nil
}

// MetricByID returns the metric with the given id, or nil.
func (s *Store) MetricByID(ctx context.Context, metricID string) (*Metric, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range d.metrics {
		if m.MetricID == metricID {
			return m, nil
		}
	}
	return nil, nil
}
