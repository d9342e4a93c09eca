// Package cli provides CLI output and HTTP client helpers for kondate.
package cli

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/kondate/internal/jsonx"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
)

// OutputFormat is the format for recommendation output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

// WriteRecommendations writes a response to w in the given format.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return jsonx.Encode(w, response, "  ")
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%2d. %-6s %s\n", r.Rank, FormatScore(r.Score), r.Recipe.Title)
		}
		return nil
	default:
		writeRecommendationsText(w, response)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, response *models.RecommendResponse) {
	fmt.Fprintf(w, "\nFound %d recipes in %dms (%d candidates", len(response.Results),
		response.QueryTime, response.TotalCandidates)
	if len(response.Diets) > 0 {
		fmt.Fprintf(w, ", diets: %s", strings.Join(response.Diets, ", "))
	}
	fmt.Fprint(w, ")\n\n")
	for _, r := range response.Results {
		writeOneResult(w, r)
	}
}

func writeOneResult(w io.Writer, result *models.ScoredRecipe) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Similarity: %s\n", result.Rank, FormatScore(result.Score))
	fmt.Fprintf(w, "%s\n", result.Recipe.Title)
	if len(result.Recipe.Ingredients) > 0 {
		fmt.Fprintf(w, "Ingredients: %s\n", Truncate(strings.Join(result.Recipe.Ingredients, ", "), 200))
	}
	if result.Recipe.Instructions != "" {
		fmt.Fprintf(w, "\n%s\n", TruncateWords(result.Recipe.Instructions, 40))
	}
	fmt.Fprintln(w)
}

// FormatScore prints a similarity with three decimals, or n/a when it is undefined.
func FormatScore(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", score)
}

// WriteStatus writes a pipeline status as text.
func WriteStatus(w io.Writer, st *pipeline.Status) {
	fmt.Fprintf(w, "State:       %s\n", st.State)
	if st.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", st.Error)
	}
	fmt.Fprintf(w, "Recipes:     %d\n", st.Recipes)
	fmt.Fprintf(w, "Dimensions:  %d\n", st.Dimensions)
	fmt.Fprintf(w, "Vocabulary:  %d tokens\n", st.VocabularySize)
	fmt.Fprintf(w, "Diets:       %s\n", strings.Join(st.Diets, ", "))
}

// WriteDiets writes every profile and its terms, sorted by name.
func WriteDiets(w io.Writer, diets map[string][]string) {
	names := make([]string, 0, len(diets))
	for name := range diets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, TruncateWords(strings.Join(diets[name], " "), 20))
	}
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
