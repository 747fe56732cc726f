package domain

import "context"

// VectorEncoder turns texts into embedding vectors of a fixed
// dimensionality per model.
type VectorEncoder interface {
	// Encode embeds the given texts, preserving order 1:1.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// Version identifies the embedding model, for payload/versioning.
	Version() string
}
