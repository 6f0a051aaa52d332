package resolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/majestic/health/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type suggestionRepoPG struct{ pool *pgxpool.Pool }

func NewSuggestionRepoPG(pool *pgxpool.Pool) SuggestionRepository {
	return &suggestionRepoPG{pool: pool}
}

func (r *suggestionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *suggestionRepoPG) Insert(ctx context.Context, s *Suggestion) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO pending_metric_suggestions (user_id, raw_name, suggested_metric_id, suggested_name, confidence, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.UserID, s.RawName, s.SuggestedMetricID, s.SuggestedName, s.Confidence, s.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert suggestion: %w", err)
	}
	return id, nil
}

func (r *suggestionRepoPG) Get(ctx context.Context, id int64) (*Suggestion, error) {
	var s Suggestion
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, user_id, raw_name, suggested_metric_id, COALESCE(suggested_name,''),
		        confidence, status, created_at, updated_at
		 FROM pending_metric_suggestions WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.RawName, &s.SuggestedMetricID, &s.SuggestedName,
			&s.Confidence, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return &s, nil
}

func (r *suggestionRepoPG) ListByUser(ctx context.Context, userID int64, status string) ([]*Suggestion, error) {
	query := `SELECT id, user_id, raw_name, suggested_metric_id, COALESCE(suggested_name,''),
	                 confidence, status, created_at, updated_at
	          FROM pending_metric_suggestions WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()
	var out []*Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.UserID, &s.RawName, &s.SuggestedMetricID, &s.SuggestedName,
			&s.Confidence, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *suggestionRepoPG) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pending_metric_suggestions SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update suggestion status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("suggestion %d not found", id)
	}
	return nil
}
