package resolution

import "context"

// SuggestionRepository persists pending metric suggestions.
type SuggestionRepository interface {
	Insert(ctx context.Context, s *Suggestion) (int64, error)
	Get(ctx context.Context, id int64) (*Suggestion, error)
	ListByUser(ctx context.Context, userID int64, status string) ([]*Suggestion, error)
	SetStatus(ctx context.Context, id int64, status string) error
}
