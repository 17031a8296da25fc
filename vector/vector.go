package vector

import (
	"context"
	"math"
)

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// CosineDistance returns 1 - cosine similarity, so that 0 means identical
// direction and larger values mean less related. Mismatched or zero vectors
// yield the maximum distance.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 1
	}

	var dotProduct, normA, normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	sim := float64(dotProduct) / (math.Sqrt(float64(normA))*math.Sqrt(float64(normB)) + 1e-8)
	return float32(1 - sim)
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	return 1 - CosineDistance(a, b)
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
