package embedding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Reserved vocabulary entries.
const (
	UnknownToken = "[UNK]"
	ClassToken   = "[CLS]"
)

// ErrMissingUnknownToken is returned when a vocabulary has no [UNK] entry.
var ErrMissingUnknownToken = errors.New("vocabulary has no " + UnknownToken + " entry")

// Vocabulary maps normalized tokens to model input ids. It is immutable after construction.
type Vocabulary struct {
	ids   map[string]int64
	size  int
	unkID int64
	clsID int64
}

// ParseVocabulary reads a newline-delimited token list where the line index is the token id.
// Trailing whitespace is trimmed per line; a later duplicate overrides an earlier one.
func ParseVocabulary(r io.Reader) (*Vocabulary, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return NewVocabulary(tokens)
}

// NewVocabulary builds a vocabulary where tokens[i] has id i.
func NewVocabulary(tokens []string) (*Vocabulary, error) {
	v := &Vocabulary{
		ids:  make(map[string]int64, len(tokens)),
		size: len(tokens),
	}
	for i, tok := range tokens {
		v.ids[strings.TrimRightFunc(tok, unicode.IsSpace)] = int64(i)
	}
	unk, ok := v.ids[UnknownToken]
	if !ok {
		return nil, ErrMissingUnknownToken
	}
	v.unkID = unk
	// Without [CLS] the sequence still starts with id 0.
	v.clsID = v.ids[ClassToken]
	return v, nil
}

// ID returns the id of token, or the [UNK] id when the token is absent.
func (v *Vocabulary) ID(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unkID
}

// ClassID returns the [CLS] id, or 0 when the vocabulary has no [CLS] entry.
func (v *Vocabulary) ClassID() int64 { return v.clsID }

// Size returns the number of lines the vocabulary was built from.
func (v *Vocabulary) Size() int { return v.size }
