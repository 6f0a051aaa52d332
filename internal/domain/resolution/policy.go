package resolution

// Disposition is the ingestion-side classification of a match.
type Disposition string

const (
	DispositionAuto       Disposition = "auto"
	DispositionReview     Disposition = "review"
	DispositionUnresolved Disposition = "unresolved"
)

// Policy holds the confidence bands used to classify matches. Thresholds
// come from configuration; the defaults are 0.95 auto and 0.75 review.
type Policy struct {
	AutoThreshold   float64
	ReviewThreshold float64
}

// Classify places a match into a band. A nil match is always unresolved.
func (p Policy) Classify(m *Match) Disposition {
	if m == nil {
		return DispositionUnresolved
	}
	switch {
	case m.Confidence >= p.AutoThreshold:
		return DispositionAuto
	case m.Confidence >= p.ReviewThreshold:
		return DispositionReview
	default:
		return DispositionUnresolved
	}
}
