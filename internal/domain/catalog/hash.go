package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashJSON returns the hex SHA-256 of v's JSON form. Struct field order is
// fixed, so the serialization is deterministic for the shapes we hash.
func hashJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only unmarshalable types can fail here; our shapes never do.
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ProposalHash is the content hash used for idempotent commits: two uploads
// with identical record sets produce the same hash.
func ProposalHash(p *Proposal) string {
	return hashJSON(p)
}

// metricShape is the set of mutable fields the diff compares. MetricID is
// the join key and deliberately excluded.
type metricShape struct {
	Name              string   `json:"metric_name"`
	SystemID          *int     `json:"system_id"`
	CanonicalUnit     string   `json:"canonical_unit"`
	ConversionGroupID string   `json:"conversion_group_id"`
	NormalMin         *float64 `json:"normal_min"`
	NormalMax         *float64 `json:"normal_max"`
	IsKeyMetric       bool     `json:"is_key_metric"`
	Source            string   `json:"source"`
	Explanation       string   `json:"explanation"`
}

func metricHash(m Metric) string {
	return hashJSON(metricShape{
		Name:              m.Name,
		SystemID:          m.SystemID,
		CanonicalUnit:     m.CanonicalUnit,
		ConversionGroupID: m.ConversionGroupID,
		NormalMin:         m.NormalMin,
		NormalMax:         m.NormalMax,
		IsKeyMetric:       m.IsKeyMetric,
		Source:            m.Source,
		Explanation:       m.Explanation,
	})
}
