package diet

import (
	"strings"

	"github.com/hyperjump/kondate/internal/models"
)

// Filter returns the records whose lowercased title and ingredients contain none of terms.
// Matching is by substring, so "ham" also excludes "hamlet". Terms must already be lowercase.
// An empty term set returns records unchanged.
func Filter(records []*models.Recipe, terms []string) []*models.Recipe {
	if len(terms) == 0 {
		return records
	}
	out := make([]*models.Recipe, 0, len(records))
	for _, r := range records {
		if !Excluded(r, terms) {
			out = append(out, r)
		}
	}
	return out
}

// Excluded reports whether r mentions any of terms.
func Excluded(r *models.Recipe, terms []string) bool {
	text := SearchText(r)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// SearchText is the lowercase title followed by the ingredients, space separated.
func SearchText(r *models.Recipe) string {
	var b strings.Builder
	b.WriteString(r.Title)
	for _, ing := range r.Ingredients {
		b.WriteByte(' ')
		b.WriteString(ing)
	}
	return strings.ToLower(b.String())
}
