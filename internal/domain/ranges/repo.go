package ranges

import (
	"context"
	"time"
)

// Repository persists per-user custom reference ranges.
type Repository interface {
	// WithinTx runs fn inside one transaction; the overlap check and the
	// insert it guards must not be separated by another writer.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	Insert(ctx context.Context, r *CustomRange) (int64, error)
	Update(ctx context.Context, r *CustomRange) error
	Deactivate(ctx context.Context, userID, id int64) error
	Get(ctx context.Context, userID, id int64) (*CustomRange, error)
	ListActive(ctx context.Context, userID int64) ([]*CustomRange, error)

	// ActiveAt returns the active range for (user, metric) whose validity
	// interval contains day, preferring the latest valid_from on ties.
	// Metric names compare case-insensitively. Nil when none applies.
	ActiveAt(ctx context.Context, userID int64, metricName string, day time.Time) (*CustomRange, error)

	// HasOverlap reports whether an active range for the same
	// (user, metric, condition) intersects [from, until], excluding
	// excludeID (0 to exclude nothing). A nil until is open-ended.
	HasOverlap(ctx context.Context, userID int64, metricName, condition string, from time.Time, until *time.Time, excludeID int64) (bool, error)
}

// ProfileRepository reads the user attributes the adjustment rules need.
type ProfileRepository interface {
	Profile(ctx context.Context, userID int64) (*Profile, error)
}
