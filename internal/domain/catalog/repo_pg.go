package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/majestic/health/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed read repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Metrics(ctx context.Context) ([]*Metric, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT metric_id, metric_name, system_id, COALESCE(canonical_unit,''),
		        COALESCE(conversion_group_id,''), normal_min, normal_max,
		        is_key_metric, COALESCE(source,''), COALESCE(explanation,'')
		 FROM master_metrics ORDER BY metric_id`)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()
	var out []*Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.MetricID, &m.Name, &m.SystemID, &m.CanonicalUnit,
			&m.ConversionGroupID, &m.NormalMin, &m.NormalMax,
			&m.IsKeyMetric, &m.Source, &m.Explanation); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *repoPG) Synonyms(ctx context.Context) ([]*Synonym, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT COALESCE(synonym_id,''), metric_id, synonym_name, COALESCE(notes,'')
		 FROM master_metric_synonyms ORDER BY metric_id, synonym_name`)
	if err != nil {
		return nil, fmt.Errorf("list synonyms: %w", err)
	}
	defer rows.Close()
	var out []*Synonym
	for rows.Next() {
		var s Synonym
		if err := rows.Scan(&s.SynonymID, &s.MetricID, &s.SynonymName, &s.Notes); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *repoPG) Edges(ctx context.Context) ([]*Edge, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT conversion_group_id, canonical_unit, alt_unit,
		        COALESCE(to_canonical_formula,''), COALESCE(from_canonical_formula,''), COALESCE(notes,'')
		 FROM master_conversion_groups ORDER BY conversion_group_id, alt_unit`)
	if err != nil {
		return nil, fmt.Errorf("list conversion edges: %w", err)
	}
	defer rows.Close()
	var out []*Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ConversionGroupID, &e.CanonicalUnit, &e.AltUnit,
			&e.ToCanonicalFormula, &e.FromCanonicalFormula, &e.Notes); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// =========== Admin repository ===========

type adminRepoPG struct{ pool *pgxpool.Pool }

// NewAdminRepoPG returns the Postgres-backed write repository.
func NewAdminRepoPG(pool *pgxpool.Pool) AdminRepository { return &adminRepoPG{pool: pool} }

func (r *adminRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *adminRepoPG) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

func (r *adminRepoPG) Versions(ctx context.Context) ([]*Version, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT version_id, COALESCE(change_summary,''), COALESCE(created_by,''), created_at,
		        data_hash, added_count, changed_count, removed_count, COALESCE(document_path,'')
		 FROM master_versions ORDER BY version_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()
	var out []*Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.VersionID, &v.ChangeSummary, &v.CreatedBy, &v.CreatedAt,
			&v.ContentHash, &v.AddedCount, &v.ChangedCount, &v.RemovedCount, &v.DocumentPath); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (r *adminRepoPG) VersionByHash(ctx context.Context, hash string) (*Version, error) {
	var v Version
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT version_id, COALESCE(change_summary,''), COALESCE(created_by,''), created_at,
		        data_hash, added_count, changed_count, removed_count, COALESCE(document_path,'')
		 FROM master_versions WHERE data_hash = $1`, hash).
		Scan(&v.VersionID, &v.ChangeSummary, &v.CreatedBy, &v.CreatedAt,
			&v.ContentHash, &v.AddedCount, &v.ChangedCount, &v.RemovedCount, &v.DocumentPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("version by hash: %w", err)
	}
	return &v, nil
}

func (r *adminRepoPG) InsertVersion(ctx context.Context, v *Version) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO master_versions (change_summary, created_by, data_hash, added_count, changed_count, removed_count)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING version_id`,
		v.ChangeSummary, v.CreatedBy, v.ContentHash, v.AddedCount, v.ChangedCount, v.RemovedCount).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	return id, nil
}

func (r *adminRepoPG) SetDocumentPath(ctx context.Context, versionID int64, path string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE master_versions SET document_path = $1 WHERE version_id = $2`, path, versionID)
	if err != nil {
		return fmt.Errorf("set document path: %w", err)
	}
	return nil
}

func (r *adminRepoPG) InsertSnapshot(ctx context.Context, versionID int64, p *Proposal) error {
	metrics, err := json.Marshal(p.Metrics)
	if err != nil {
		return fmt.Errorf("marshal snapshot metrics: %w", err)
	}
	synonyms, err := json.Marshal(p.Synonyms)
	if err != nil {
		return fmt.Errorf("marshal snapshot synonyms: %w", err)
	}
	edges, err := json.Marshal(p.Edges)
	if err != nil {
		return fmt.Errorf("marshal snapshot edges: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx,
		`INSERT INTO master_snapshots (version_id, metrics_json, synonyms_json, conversion_groups_json)
		 VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb)`,
		versionID, metrics, synonyms, edges)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *adminRepoPG) Snapshot(ctx context.Context, versionID int64) (*Proposal, error) {
	var metrics, synonyms, edges []byte
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT metrics_json, synonyms_json, conversion_groups_json
		 FROM master_snapshots WHERE version_id = $1`, versionID).
		Scan(&metrics, &synonyms, &edges)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var p Proposal
	if err := json.Unmarshal(metrics, &p.Metrics); err != nil {
		return nil, fmt.Errorf("decode snapshot metrics: %w", err)
	}
	if err := json.Unmarshal(synonyms, &p.Synonyms); err != nil {
		return nil, fmt.Errorf("decode snapshot synonyms: %w", err)
	}
	if err := json.Unmarshal(edges, &p.Edges); err != nil {
		return nil, fmt.Errorf("decode snapshot edges: %w", err)
	}
	return &p, nil
}

func (r *adminRepoPG) ReplaceCatalog(ctx context.Context, p *Proposal) error {
	conn := r.conn(ctx)

	// Child tables first, then the parent.
	for _, stmt := range []string{
		`DELETE FROM master_metric_synonyms`,
		`DELETE FROM master_conversion_groups`,
		`DELETE FROM master_metrics`,
	} {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}

	seen := make(map[string]bool, len(p.Metrics))
	for _, row := range p.Metrics {
		m := row.Normalize()
		if m.MetricID == "" || seen[m.MetricID] {
			continue
		}
		seen[m.MetricID] = true
		_, err := conn.Exec(ctx,
			`INSERT INTO master_metrics (metric_id, metric_name, system_id, canonical_unit,
			        conversion_group_id, normal_min, normal_max, is_key_metric, source, explanation)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			m.MetricID, m.Name, m.SystemID, nullable(m.CanonicalUnit), nullable(m.ConversionGroupID),
			m.NormalMin, m.NormalMax, m.IsKeyMetric, nullable(m.Source), nullable(m.Explanation))
		if err != nil {
			return fmt.Errorf("insert metric %s: %w", m.MetricID, err)
		}
	}

	for _, row := range p.Synonyms {
		s := row.Normalize()
		if !seen[s.MetricID] {
			continue
		}
		_, err := conn.Exec(ctx,
			`INSERT INTO master_metric_synonyms (synonym_id, metric_id, synonym_name, notes)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (synonym_id) DO UPDATE SET
			   metric_id = EXCLUDED.metric_id,
			   synonym_name = EXCLUDED.synonym_name,
			   notes = EXCLUDED.notes`,
			s.SynonymID, s.MetricID, s.SynonymName, nullable(s.Notes))
		if err != nil {
			return fmt.Errorf("insert synonym %s: %w", s.SynonymID, err)
		}
	}

	for _, row := range p.Edges {
		e := row.Normalize()
		_, err := conn.Exec(ctx,
			`INSERT INTO master_conversion_groups (conversion_group_id, canonical_unit, alt_unit,
			        to_canonical_formula, from_canonical_formula, notes)
			 VALUES ($1,$2,$3,$4,$5,$6)
			 ON CONFLICT (conversion_group_id, alt_unit) DO UPDATE SET
			   canonical_unit = EXCLUDED.canonical_unit,
			   to_canonical_formula = EXCLUDED.to_canonical_formula,
			   from_canonical_formula = EXCLUDED.from_canonical_formula,
			   notes = EXCLUDED.notes`,
			e.ConversionGroupID, e.CanonicalUnit, e.AltUnit,
			nullable(e.ToCanonicalFormula), nullable(e.FromCanonicalFormula), nullable(e.Notes))
		if err != nil {
			return fmt.Errorf("insert conversion edge %s/%s: %w", e.ConversionGroupID, e.AltUnit, err)
		}
	}

	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
