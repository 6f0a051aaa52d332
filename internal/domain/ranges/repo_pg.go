package ranges

import (
	"context"
	"errors"
	"fmt"
	"time"

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

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

const rangeColumns = `id, user_id, metric_name, min_value, max_value, COALESCE(units,''),
	COALESCE(medical_condition,''), COALESCE(condition_details,''), COALESCE(notes,''),
	valid_from, valid_until, is_active, created_at, updated_at`

func scanRange(row pgx.Row) (*CustomRange, error) {
	var cr CustomRange
	err := row.Scan(&cr.ID, &cr.UserID, &cr.MetricName, &cr.MinValue, &cr.MaxValue, &cr.Units,
		&cr.MedicalCondition, &cr.ConditionDetails, &cr.Notes,
		&cr.ValidFrom, &cr.ValidUntil, &cr.IsActive, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *repoPG) Insert(ctx context.Context, cr *CustomRange) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO custom_reference_ranges
		   (user_id, metric_name, min_value, max_value, units,
		    medical_condition, condition_details, notes, valid_from, valid_until, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true) RETURNING id`,
		cr.UserID, cr.MetricName, cr.MinValue, cr.MaxValue, cr.Units,
		cr.MedicalCondition, cr.ConditionDetails, cr.Notes, cr.ValidFrom, cr.ValidUntil).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert custom range: %w", err)
	}
	return id, nil
}

func (r *repoPG) Update(ctx context.Context, cr *CustomRange) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE custom_reference_ranges
		 SET metric_name = $1, min_value = $2, max_value = $3, units = $4,
		     medical_condition = $5, condition_details = $6, notes = $7,
		     valid_from = $8, valid_until = $9, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $10 AND user_id = $11 AND is_active = true`,
		cr.MetricName, cr.MinValue, cr.MaxValue, cr.Units,
		cr.MedicalCondition, cr.ConditionDetails, cr.Notes,
		cr.ValidFrom, cr.ValidUntil, cr.ID, cr.UserID)
	if err != nil {
		return fmt.Errorf("update custom range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRangeNotFound
	}
	return nil
}

func (r *repoPG) Deactivate(ctx context.Context, userID, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE custom_reference_ranges
		 SET is_active = false, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND user_id = $2 AND is_active = true`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate custom range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRangeNotFound
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, userID, id int64) (*CustomRange, error) {
	cr, err := scanRange(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rangeColumns+` FROM custom_reference_ranges WHERE id = $1 AND user_id = $2`,
		id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRangeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get custom range: %w", err)
	}
	return cr, nil
}

func (r *repoPG) ListActive(ctx context.Context, userID int64) ([]*CustomRange, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rangeColumns+`
		 FROM custom_reference_ranges
		 WHERE user_id = $1 AND is_active = true
		 ORDER BY metric_name, valid_from DESC NULLS LAST`, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom ranges: %w", err)
	}
	defer rows.Close()
	var out []*CustomRange
	for rows.Next() {
		cr, err := scanRange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func (r *repoPG) ActiveAt(ctx context.Context, userID int64, metricName string, day time.Time) (*CustomRange, error) {
	cr, err := scanRange(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rangeColumns+`
		 FROM custom_reference_ranges
		 WHERE user_id = $1 AND LOWER(metric_name) = LOWER($2) AND is_active = true
		   AND (valid_from IS NULL OR valid_from <= $3)
		   AND (valid_until IS NULL OR valid_until >= $3)
		 ORDER BY valid_from DESC NULLS LAST
		 LIMIT 1`, userID, metricName, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active custom range: %w", err)
	}
	return cr, nil
}

func (r *repoPG) HasOverlap(ctx context.Context, userID int64, metricName, condition string, from time.Time, until *time.Time, excludeID int64) (bool, error) {
	// Two intervals [from, until] and [valid_from, valid_until] with nil
	// meaning open-ended overlap unless one ends before the other starts.
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM custom_reference_ranges
		   WHERE user_id = $1
		     AND LOWER(metric_name) = LOWER($2)
		     AND COALESCE(medical_condition, '') = $3
		     AND is_active = true
		     AND id <> $6
		     AND (valid_from IS NULL OR $5::date IS NULL OR valid_from <= $5)
		     AND (valid_until IS NULL OR valid_until >= $4)
		 )`, userID, metricName, condition, from, until, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return exists, nil
}

// =========== Profile repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) Profile(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(sex,''), date_of_birth, COALESCE(has_cardiovascular_disease, false)
		 FROM users WHERE id = $1`, userID).
		Scan(&p.Sex, &p.DateOfBirth, &p.HasCardiovascularDisease)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}
