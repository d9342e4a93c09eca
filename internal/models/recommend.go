package models

import "strings"

// RecommendRequest is a recommendation query with an optional diet profile.
type RecommendRequest struct {
	Query string   `json:"query"`
	Limit int      `json:"limit,omitempty"`
	Diets []string `json:"diets,omitempty"`
}

// Normalize trims the query, defaults an unset limit to defaultLimit, caps it at maxLimit when
// maxLimit is positive, and lowercases and de-duplicates diet names.
func (r *RecommendRequest) Normalize(defaultLimit, maxLimit int) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	if len(r.Diets) == 0 {
		return
	}
	seen := make(map[string]bool, len(r.Diets))
	diets := r.Diets[:0]
	for _, d := range r.Diets {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		diets = append(diets, d)
	}
	r.Diets = diets
}

// IsEmpty reports whether the query has no text to embed.
func (r *RecommendRequest) IsEmpty() bool {
	return strings.TrimSpace(r.Query) == ""
}

// RecommendResponse is the ranked result of one recommendation query.
type RecommendResponse struct {
	RequestID string `json:"request_id"`
	// Sequence increases with every query accepted by the pipeline; a consumer applies a
	// response only if it carries the latest sequence it issued.
	Sequence        uint64          `json:"sequence"`
	Query           string          `json:"query"`
	Diets           []string        `json:"diets,omitempty"`
	Results         []*ScoredRecipe `json:"results"`
	TotalCandidates int             `json:"total_candidates"`
	QueryTime       int64           `json:"query_time_ms"`
}
