package catalog

import "context"

// Repository is the read path over the live catalog tables.
type Repository interface {
	Metrics(ctx context.Context) ([]*Metric, error)
	Synonyms(ctx context.Context) ([]*Synonym, error)
	Edges(ctx context.Context) ([]*Edge, error)
}

// AdminRepository is the write path used by commit and rollback. WithinTx
// runs fn with a transaction on the context so every repository call inside
// joins the same transaction.
type AdminRepository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	Versions(ctx context.Context) ([]*Version, error)
	VersionByHash(ctx context.Context, hash string) (*Version, error)
	InsertVersion(ctx context.Context, v *Version) (int64, error)
	SetDocumentPath(ctx context.Context, versionID int64, path string) error

	InsertSnapshot(ctx context.Context, versionID int64, p *Proposal) error
	Snapshot(ctx context.Context, versionID int64) (*Proposal, error)

	// ReplaceCatalog deletes every synonym, edge and metric row (child to
	// parent order) and reinserts the proposal's contents.
	ReplaceCatalog(ctx context.Context, p *Proposal) error
}
