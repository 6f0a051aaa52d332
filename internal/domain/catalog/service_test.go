package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// memCatalog backs both Repository and AdminRepository with maps, the same
// way the handler and service tests elsewhere in this codebase stub out
// Postgres.
type memCatalog struct {
	metrics  []*Metric
	synonyms []*Synonym
	edges    []*Edge

	versions  []*Version
	snapshots map[int64]*Proposal
	nextID    int64
}

func newMemCatalog() *memCatalog {
	return &memCatalog{snapshots: make(map[int64]*Proposal), nextID: 1}
}

func (m *memCatalog) Metrics(ctx context.Context) ([]*Metric, error)   { return m.metrics, nil }
func (m *memCatalog) Synonyms(ctx context.Context) ([]*Synonym, error) { return m.synonyms, nil }
func (m *memCatalog) Edges(ctx context.Context) ([]*Edge, error)       { return m.edges, nil }

func (m *memCatalog) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memCatalog) Versions(ctx context.Context) ([]*Version, error) {
	out := make([]*Version, len(m.versions))
	for i, v := range m.versions {
		out[len(m.versions)-1-i] = v
	}
	return out, nil
}

func (m *memCatalog) VersionByHash(ctx context.Context, hash string) (*Version, error) {
	for _, v := range m.versions {
		if v.ContentHash == hash {
			return v, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) InsertVersion(ctx context.Context, v *Version) (int64, error) {
	v.VersionID = m.nextID
	m.nextID++
	m.versions = append(m.versions, v)
	return v.VersionID, nil
}

func (m *memCatalog) SetDocumentPath(ctx context.Context, versionID int64, path string) error {
	for _, v := range m.versions {
		if v.VersionID == versionID {
			v.DocumentPath = path
		}
	}
	return nil
}

func (m *memCatalog) InsertSnapshot(ctx context.Context, versionID int64, p *Proposal) error {
	m.snapshots[versionID] = p
	return nil
}

func (m *memCatalog) Snapshot(ctx context.Context, versionID int64) (*Proposal, error) {
	p, ok := m.snapshots[versionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return p, nil
}

func (m *memCatalog) ReplaceCatalog(ctx context.Context, p *Proposal) error {
	m.metrics = nil
	m.synonyms = nil
	m.edges = nil
	seen := make(map[string]bool)
	for _, row := range p.Metrics {
		metric := row.Normalize()
		if metric.MetricID == "" || seen[metric.MetricID] {
			continue
		}
		seen[metric.MetricID] = true
		m.metrics = append(m.metrics, &metric)
	}
	for _, row := range p.Synonyms {
		syn := row.Normalize()
		if seen[syn.MetricID] {
			m.synonyms = append(m.synonyms, &syn)
		}
	}
	for _, row := range p.Edges {
		edge := row.Normalize()
		m.edges = append(m.edges, &edge)
	}
	return nil
}

func newTestService(mem *memCatalog) *Service {
	return NewService(NewStore(mem), mem, "", zerolog.Nop())
}

func TestCommit_AppliesProposal(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	ctx := context.Background()

	res, err := svc.Commit(ctx, validProposal(), "initial load", "tester", nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Idempotent {
		t.Error("first commit must not be idempotent")
	}
	if res.Added != 2 || res.Changed != 0 || res.Removed != 0 {
		t.Errorf("diff counts = %d/%d/%d, want 2/0/0", res.Added, res.Changed, res.Removed)
	}
	if len(mem.metrics) != 2 || len(mem.synonyms) != 2 || len(mem.edges) != 2 {
		t.Errorf("live tables not replaced: %d metrics, %d synonyms, %d edges",
			len(mem.metrics), len(mem.synonyms), len(mem.edges))
	}
}

func TestCommit_PersistsSourceDocument(t *testing.T) {
	mem := newMemCatalog()
	dir, err := os.MkdirTemp("", "catalog")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	svc := NewService(NewStore(mem), mem, dir, zerolog.Nop())
	ctx := context.Background()

	document := []byte("workbook bytes")
	res, err := svc.Commit(ctx, validProposal(), "initial load", "tester", document)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(mem.versions) != 1 {
		t.Fatalf("expected one version row, got %d", len(mem.versions))
	}
	path := mem.versions[0].DocumentPath
	if path == "" {
		t.Fatal("version row should point at the stored document")
	}
	stored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored document: %v", err)
	}
	if string(stored) != string(document) {
		t.Errorf("stored document = %q", stored)
	}
	if res.Idempotent {
		t.Error("first commit must not be idempotent")
	}
}

func TestCommit_NoDocumentLeavesPathEmpty(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)

	if _, err := svc.Commit(context.Background(), validProposal(), "load", "tester", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(mem.versions) != 1 || mem.versions[0].DocumentPath != "" {
		t.Errorf("versions = %+v", mem.versions)
	}
}

func TestCommit_Idempotent(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	ctx := context.Background()

	first, err := svc.Commit(ctx, validProposal(), "load", "tester", nil)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := svc.Commit(ctx, validProposal(), "load again", "tester", nil)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if !second.Idempotent {
		t.Error("identical proposal must short-circuit as idempotent")
	}
	if second.VersionID != first.VersionID {
		t.Errorf("idempotent commit returned version %d, want %d", second.VersionID, first.VersionID)
	}
	if len(mem.versions) != 1 {
		t.Errorf("expected a single version row, got %d", len(mem.versions))
	}
}

func TestCommit_RejectsInvalidProposal(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)

	p := validProposal()
	p.Metrics[0].NormalMin = "100"
	p.Metrics[0].NormalMax = "50"

	_, err := svc.Commit(context.Background(), p, "bad", "tester", nil)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 1 {
		t.Errorf("expected one validation error, got %v", verr.Errors)
	}
	if len(mem.versions) != 0 || len(mem.metrics) != 0 {
		t.Error("invalid proposal must not be applied")
	}
}

func TestCommit_SkipsDuplicateMetricIDs(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)

	p := validProposal()
	p.Metrics = append(p.Metrics, p.Metrics[0])

	if _, err := svc.Commit(context.Background(), p, "dupes", "tester", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(mem.metrics) != 2 {
		t.Errorf("duplicate metric_id should be skipped, got %d rows", len(mem.metrics))
	}
}

func TestDiff_AgainstLiveCatalog(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, validProposal(), "load", "tester", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// One changed (glucose max), one removed (hdl), one added (ldl).
	p := validProposal()
	p.Metrics[0].NormalMax = "110"
	p.Metrics = p.Metrics[:1]
	p.Metrics = append(p.Metrics, MetricRow{
		MetricID: "ldl", Name: "LDL Cholesterol", SystemID: "1",
		CanonicalUnit: "mg/dL", ConversionGroupID: "cholesterol",
	})
	p.Synonyms = p.Synonyms[:1]

	d, err := svc.Diff(ctx, p)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if d.Added != 1 || d.Changed != 1 || d.Removed != 1 {
		t.Errorf("diff = %+v, want 1 added, 1 changed, 1 removed", d)
	}
}

func TestDiff_IdenticalProposalIsEmpty(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, validProposal(), "load", "tester", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	d, err := svc.Diff(ctx, validProposal())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if d.Added != 0 || d.Changed != 0 || d.Removed != 0 {
		t.Errorf("re-diff of committed proposal = %+v, want all zero", d)
	}
}

func TestRollback_RestoresSnapshot(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	ctx := context.Background()

	v1, err := svc.Commit(ctx, validProposal(), "v1", "tester", nil)
	if err != nil {
		t.Fatalf("commit v1: %v", err)
	}

	p2 := validProposal()
	p2.Metrics = p2.Metrics[:1]
	p2.Synonyms = p2.Synonyms[:1]
	if _, err := svc.Commit(ctx, p2, "v2 drops hdl", "tester", nil); err != nil {
		t.Fatalf("commit v2: %v", err)
	}
	if len(mem.metrics) != 1 {
		t.Fatalf("v2 should leave one metric, got %d", len(mem.metrics))
	}

	if err := svc.Rollback(ctx, v1.VersionID); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if len(mem.metrics) != 2 {
		t.Errorf("rollback should restore both metrics, got %d", len(mem.metrics))
	}
	if len(mem.versions) != 2 {
		t.Errorf("rollback must not create a version row, got %d", len(mem.versions))
	}

	// Live state after rollback diffs clean against the v1 proposal.
	d, err := svc.Diff(ctx, validProposal())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if d.Added != 0 || d.Changed != 0 || d.Removed != 0 {
		t.Errorf("post-rollback diff = %+v, want all zero", d)
	}
}

func TestRollback_UnknownVersion(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	if err := svc.Rollback(context.Background(), 99); err != ErrSnapshotNotFound {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestCommit_InvalidatesStoreCache(t *testing.T) {
	mem := newMemCatalog()
	svc := newTestService(mem)
	ctx := context.Background()

	// Prime the cache with the empty catalog.
	if metrics, _ := svc.Store().Metrics(ctx); len(metrics) != 0 {
		t.Fatalf("expected empty catalog, got %d metrics", len(metrics))
	}
	if _, err := svc.Commit(ctx, validProposal(), "load", "tester", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	metrics, err := svc.Store().Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if len(metrics) != 2 {
		t.Errorf("cache served stale catalog: %d metrics", len(metrics))
	}
}
