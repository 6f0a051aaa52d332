package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Service drives catalog validation, diffing, commits and rollbacks. Commit
// and rollback are serialized by a catalog-scoped mutex on top of the
// per-call transaction, so no two writers interleave against the live
// tables.
type Service struct {
	store *Store
	admin AdminRepository
	log   zerolog.Logger

	exportDir string

	mu sync.Mutex
}

func NewService(store *Store, admin AdminRepository, exportDir string, log zerolog.Logger) *Service {
	return &Service{store: store, admin: admin, exportDir: exportDir, log: log}
}

// Store exposes the read path for sibling packages (resolver, converter).
func (s *Service) Store() *Store { return s.store }

// ValidationResult is the outcome of a dry-run validation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (s *Service) Validate(p *Proposal) *ValidationResult {
	errs := ValidateProposal(p)
	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (s *Service) Diff(ctx context.Context, p *Proposal) (*DiffSummary, error) {
	live, err := s.store.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	d := computeDiff(live, p)
	return &d, nil
}

func (s *Service) DiffDetailed(ctx context.Context, p *Proposal) (*DetailedDiff, error) {
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
	return computeDetailedDiff(metrics, synonyms, edges, p), nil
}

// CommitResult reports an applied (or idempotently skipped) commit.
type CommitResult struct {
	VersionID  int64 `json:"version_id"`
	Idempotent bool  `json:"idempotent"`
	Added      int   `json:"added"`
	Changed    int   `json:"changed"`
	Removed    int   `json:"removed"`
}

// Commit validates the proposal, then applies it as a new catalog version.
// Re-submitting a record set whose content hash matches a prior version
// returns that version without writing anything. When document carries the
// original bulk upload, it is persisted alongside the exports and the
// version row points at it.
func (s *Service) Commit(ctx context.Context, p *Proposal, summary, author string, document []byte) (*CommitResult, error) {
	if errs := ValidateProposal(p); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	if summary == "" {
		summary = "update"
	}
	if author == "" {
		author = "admin"
	}

	hash := ProposalHash(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.admin.VersionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &CommitResult{
			VersionID:  existing.VersionID,
			Idempotent: true,
			Added:      existing.AddedCount,
			Changed:    existing.ChangedCount,
			Removed:    existing.RemovedCount,
		}, nil
	}

	live, err := s.store.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	diff := computeDiff(live, p)

	var versionID int64
	err = s.admin.WithinTx(ctx, func(ctx context.Context) error {
		versionID, err = s.admin.InsertVersion(ctx, &Version{
			ChangeSummary: summary,
			CreatedBy:     author,
			ContentHash:   hash,
			AddedCount:    diff.Added,
			ChangedCount:  diff.Changed,
			RemovedCount:  diff.Removed,
		})
		if err != nil {
			return err
		}
		if err := s.admin.InsertSnapshot(ctx, versionID, p); err != nil {
			return err
		}
		if len(document) > 0 {
			path, err := s.saveDocument(versionID, document)
			if err != nil {
				return err
			}
			if path != "" {
				if err := s.admin.SetDocumentPath(ctx, versionID, path); err != nil {
					return err
				}
			}
		}
		return s.admin.ReplaceCatalog(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("commit catalog version: %w", err)
	}

	s.store.Invalidate()
	go s.regenerateExports(context.Background(), versionID)

	return &CommitResult{
		VersionID: versionID,
		Added:     diff.Added,
		Changed:   diff.Changed,
		Removed:   diff.Removed,
	}, nil
}

// Rollback restores the live tables to the state recorded by versionID's
// snapshot. It writes no new version row; a rollback is a restoration, not
// an edit.
func (s *Service) Rollback(ctx context.Context, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.admin.Snapshot(ctx, versionID)
	if err != nil {
		return err
	}

	err = s.admin.WithinTx(ctx, func(ctx context.Context) error {
		return s.admin.ReplaceCatalog(ctx, snap)
	})
	if err != nil {
		return fmt.Errorf("rollback to version %d: %w", versionID, err)
	}

	s.store.Invalidate()
	go s.regenerateExports(context.Background(), versionID)
	return nil
}

// saveDocument writes the original bulk upload under the export directory
// so a version's source document stays retrievable. Without a configured
// export directory there is nowhere to keep it.
func (s *Service) saveDocument(versionID int64, document []byte) (string, error) {
	if s.exportDir == "" {
		return "", nil
	}
	dir := filepath.Join(s.exportDir, "documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create documents dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("version_%d.xlsx", versionID))
	if err := os.WriteFile(path, document, 0o644); err != nil {
		return "", fmt.Errorf("store source document: %w", err)
	}
	return path, nil
}

func (s *Service) Versions(ctx context.Context) ([]*Version, error) {
	return s.admin.Versions(ctx)
}

// regenerateExports refreshes the read-optimized JSON exports after a
// successful write. It runs off the request path on a background context,
// and failures are logged, never surfaced: the commit already happened and
// must not appear to fail.
func (s *Service) regenerateExports(ctx context.Context, versionID int64) {
	if s.exportDir == "" {
		return
	}
	if err := s.ExportJSON(ctx, s.exportDir); err != nil {
		s.log.Warn().Err(err).Int64("version_id", versionID).
			Msg("catalog committed but JSON export regeneration failed")
		return
	}
	s.log.Info().Int64("version_id", versionID).Str("dir", s.exportDir).
		Msg("regenerated catalog JSON exports")
}
