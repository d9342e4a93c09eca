package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMalformedOutput is returned when the model output does not have shape [1, L, H].
var ErrMalformedOutput = errors.New("malformed model output")

// Extractor embeds text by running the model and mean-pooling the valid token positions.
type Extractor struct {
	tokenizer *Tokenizer
	model     Model
	cache     Cache
	logger    *zap.Logger
}

var _ Embedder = (*Extractor)(nil)

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithCache caches embeddings by exact input text.
func WithCache(c Cache) ExtractorOption {
	return func(e *Extractor) { e.cache = c }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor over the given tokenizer and model.
func NewExtractor(tokenizer *Tokenizer, model Model, opts ...ExtractorOption) *Extractor {
	e := &Extractor{tokenizer: tokenizer, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns the mean-pooled embedding of text. Model failures are returned as-is (wrapped);
// there is no retry and no fallback vector.
func (e *Extractor) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, text); ok {
			// Entries written by a model with another hidden size are misses.
			if d := e.Dimensions(); d <= 0 || len(cached) == d {
				return cached, nil
			}
			e.logger.Debug("cached embedding has wrong dimensions",
				zap.Int("cached", len(cached)),
				zap.Int("dimensions", e.Dimensions()))
		}
	}

	seq := e.tokenizer.Tokenize(text)
	hidden, err := e.model.Run(ctx, BuildInputs(seq))
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	emb, err := MeanPool(hidden, seq.ValidLength)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query embedded",
		zap.Int("valid_length", seq.ValidLength),
		zap.Int("dimensions", len(emb)))

	if e.cache != nil {
		e.cache.Set(ctx, text, emb)
	}
	return emb, nil
}

// Dimensions returns the model's declared hidden size.
func (e *Extractor) Dimensions() int {
	return e.model.HiddenSize()
}

// MeanPool averages hidden states of batch 0 over positions [0, validLength) for each hidden
// dimension. Padding positions contribute to neither the sum nor the divisor.
func MeanPool(hs *HiddenStates, validLength int) ([]float64, error) {
	if hs == nil || len(hs.Shape) != 3 {
		return nil, fmt.Errorf("%w: want 3 dimensions", ErrMalformedOutput)
	}
	batch, positions, hidden := hs.Shape[0], hs.Shape[1], hs.Shape[2]
	if batch < 1 || hidden < 1 {
		return nil, fmt.Errorf("%w: shape %v", ErrMalformedOutput, hs.Shape)
	}
	if validLength < 1 || int64(validLength) > positions {
		return nil, fmt.Errorf("%w: %d valid positions, output has %d", ErrMalformedOutput, validLength, positions)
	}
	if int64(len(hs.Data)) != batch*positions*hidden {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrMalformedOutput, len(hs.Data), hs.Shape)
	}

	h := int(hidden)
	emb := make([]float64, h)
	for j := 0; j < validLength; j++ {
		row := hs.Data[j*h : (j+1)*h]
		for i, v := range row {
			emb[i] += float64(v)
		}
	}
	for i := range emb {
		emb[i] /= float64(validLength)
	}
	return emb, nil
}
