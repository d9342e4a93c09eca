// Package ranking orders recipes by cosine similarity to a query embedding.
package ranking

import (
	"math"
	"sort"

	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/vector"
)

// Rank scores every record against query and returns at most limit results, best first.
// Scores that are NaN (zero norm or dimension mismatch) rank below every number. Equal
// scores keep corpus order. Rank numbers start at 1.
func Rank(query []float64, records []*models.Recipe, limit int) []*models.ScoredRecipe {
	if limit <= 0 || len(records) == 0 {
		return []*models.ScoredRecipe{}
	}

	scored := make([]*models.ScoredRecipe, len(records))
	for i, r := range records {
		scored[i] = &models.ScoredRecipe{Recipe: r, Score: vector.Cosine(query, r.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return Less(scored[i].Score, scored[j].Score)
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}
	for i, s := range scored {
		s.Rank = i + 1
	}
	return scored
}

// Less orders a before b when a is the better score. NaN is worse than any number.
func Less(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a > b
	}
}
