// Package models defines core data structures for recipes and recommendations.
package models

import (
	"encoding/json"
	"math"
)

// Recipe is one corpus record with its precomputed embedding. Immutable once loaded.
type Recipe struct {
	Title        string    `json:"title"`
	Ingredients  []string  `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Image        string    `json:"image,omitempty"`
	Embedding    []float64 `json:"embedding,omitempty"`
}

// ScoredRecipe pairs a recipe with its similarity to the query.
// Score is NaN when either embedding has zero norm.
type ScoredRecipe struct {
	Recipe *Recipe `json:"recipe"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

type scoredRecipeJSON struct {
	Recipe *Recipe  `json:"recipe"`
	Score  *float64 `json:"score"`
	Rank   int      `json:"rank"`
}

// MarshalJSON writes a NaN score as null, which JSON cannot otherwise represent.
func (s ScoredRecipe) MarshalJSON() ([]byte, error) {
	out := scoredRecipeJSON{Recipe: s.Recipe, Rank: s.Rank}
	if !math.IsNaN(s.Score) && !math.IsInf(s.Score, 0) {
		score := s.Score
		out.Score = &score
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null score back as NaN.
func (s *ScoredRecipe) UnmarshalJSON(data []byte) error {
	var in scoredRecipeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Recipe = in.Recipe
	s.Rank = in.Rank
	s.Score = math.NaN()
	if in.Score != nil {
		s.Score = *in.Score
	}
	return nil
}
