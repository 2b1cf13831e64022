package index

import "math"

// Cosine returns the cosine similarity of two vectors: 1 for identical
// direction, 0 for orthogonal, -1 for opposite. Mismatched or zero-length
// inputs score 0. Query and document rankings across all backends are
// defined by this metric, so it must stay in lockstep with the distance the
// weaviate class is configured with.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
