package embedding

import "strings"

// MaxSequenceLength is the fixed model input length. Corpus embeddings were produced with the
// same length, so it is not configurable.
const MaxSequenceLength = 128

// TokenSequence is a bounded id sequence starting with [CLS]. ValidLength counts the
// positions that are real tokens; everything after is padding.
type TokenSequence struct {
	IDs         []int64
	ValidLength int
}

// Tokenizer maps text to vocabulary ids with whole-word lookup.
type Tokenizer struct {
	vocab  *Vocabulary
	maxLen int
}

// NewTokenizer returns a tokenizer over v producing at most MaxSequenceLength ids.
func NewTokenizer(v *Vocabulary) *Tokenizer {
	return &Tokenizer{vocab: v, maxLen: MaxSequenceLength}
}

// Tokenize normalizes text, maps every fragment through the vocabulary and prepends [CLS].
// It never fails: empty, oversized or unknown text yields a valid sequence.
func (t *Tokenizer) Tokenize(text string) TokenSequence {
	fragments := SplitWords(text)
	n := len(fragments) + 1
	if n > t.maxLen {
		n = t.maxLen
	}
	ids := make([]int64, 0, n)
	ids = append(ids, t.vocab.ClassID())
	for _, f := range fragments {
		if len(ids) >= n {
			break
		}
		ids = append(ids, t.vocab.ID(f))
	}
	return TokenSequence{IDs: ids, ValidLength: n}
}

// SplitWords lowercases text, replaces every character outside [a-z0-9 ] with a space
// and returns the non-empty fragments.
func SplitWords(text string) []string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}
