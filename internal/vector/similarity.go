// Package vector provides similarity math and a binary codec for embedding vectors.
package vector

import "math"

// Cosine returns dot(a,b) / (|a|*|b|), in [-1, 1].
// A zero-norm operand, an empty operand, or mismatched lengths give NaN.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
