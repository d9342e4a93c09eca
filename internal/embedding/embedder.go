// Package embedding turns query text into an embedding vector: vocabulary lookup,
// tokenization, fixed-shape model inputs, model inference and mean pooling.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Dimensions returns the embedding dimension, or 0 when the model has not reported it.
	Dimensions() int
}
