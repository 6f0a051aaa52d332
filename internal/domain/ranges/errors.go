package ranges

import "errors"

var (
	// ErrOverlap rejects a custom range whose validity interval overlaps an
	// existing active range for the same (user, metric, condition).
	ErrOverlap = errors.New("custom range overlaps an existing active range")

	// ErrInvalidBounds rejects min >= max.
	ErrInvalidBounds = errors.New("min_value must be less than max_value")

	ErrRangeNotFound = errors.New("custom range not found")
)
