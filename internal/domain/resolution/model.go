package resolution

import "time"

// Suggestion statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Suggestion is a resolution that landed in the review band and waits for a
// human decision before the mapping is trusted.
type Suggestion struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	RawName           string    `json:"raw_name"`
	SuggestedMetricID string    `json:"suggested_metric_id"`
	SuggestedName     string    `json:"suggested_name"`
	Confidence        float64   `json:"confidence"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
