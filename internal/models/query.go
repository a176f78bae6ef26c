package models

import "fmt"

// SimilarQuery asks for the K candidates most visually similar to Query.
// When Pool is set, every image under the configured root is a candidate and
// Candidates is ignored.
type SimilarQuery struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates,omitempty"`
	K          *int     `json:"k,omitempty"`
	Pool       bool     `json:"pool,omitempty"`
}

// Validate checks the query and resolves K: nil uses defaultK, values above
// maxK are capped. A non-positive K is kept; it yields an empty result.
// Returns an error if the query key is blank or there are more than
// maxCandidates candidates (maxCandidates <= 0 disables the check).
func (q *SimilarQuery) Validate(defaultK, maxK, maxCandidates int) (int, error) {
	if q.Query == "" {
		return 0, fmt.Errorf("query cannot be empty")
	}
	if maxCandidates > 0 && len(q.Candidates) > maxCandidates {
		return 0, fmt.Errorf("too many candidates: %d (max %d)", len(q.Candidates), maxCandidates)
	}
	k := defaultK
	if q.K != nil {
		k = *q.K
	}
	if maxK > 0 && k > maxK {
		k = maxK
	}
	return k, nil
}

// WarmRequest lists image keys to embed ahead of time.
type WarmRequest struct {
	Keys []string `json:"keys"`
}
